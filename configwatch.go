package asyncevents

import (
	"log/slog"

	"github.com/fsnotify/fsnotify"
)

// ConfigWatcher watches a TopicConfig file and applies changes to its ack
// timeout live. Only AckTimeout is hot-reloaded: Name identifies the topic
// and is never changed after construction.
type ConfigWatcher struct {
	topic  *Topic
	path   string
	prefix string
	logger *slog.Logger
	watch  *fsnotify.Watcher
	done   chan struct{}
}

// WatchTopicConfig starts watching path for changes and applies them to
// topic until Close is called.
func WatchTopicConfig(topic *Topic, path, envPrefix string, logger *slog.Logger) (*ConfigWatcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(path); err != nil {
		w.Close()
		return nil, err
	}

	cw := &ConfigWatcher{topic: topic, path: path, prefix: envPrefix, logger: logger, watch: w, done: make(chan struct{})}
	go cw.loop()
	return cw, nil
}

func (cw *ConfigWatcher) loop() {
	for {
		select {
		case ev, ok := <-cw.watch.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			cw.reload()
		case err, ok := <-cw.watch.Errors:
			if !ok {
				return
			}
			cw.logger.Error("asyncevents config watch error", "path", cw.path, "error", err)
		case <-cw.done:
			return
		}
	}
}

func (cw *ConfigWatcher) reload() {
	cfg, err := LoadTopicConfig(cw.path, cw.prefix)
	if err != nil {
		cw.logger.Error("asyncevents config reload failed", "path", cw.path, "error", err)
		return
	}
	if cfg.AckTimeout <= 0 {
		cw.logger.Warn("asyncevents config reload ignored non-positive ack_timeout", "path", cw.path)
		return
	}
	cw.topic.setAckTimeout(cfg.AckTimeout)
	cw.logger.Info("asyncevents ack timeout reloaded", "topic", cw.topic.name, "ack_timeout", cfg.AckTimeout)
}

// Close stops the watcher.
func (cw *ConfigWatcher) Close() error {
	close(cw.done)
	return cw.watch.Close()
}
