package configwatcher

import (
	"path/filepath"
	"skillplan_backend/internal/config"
	"skillplan_backend/pkg/logger"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// ConfigReloader 配置文件变更并重新校验通过后调用
type ConfigReloader func(cfg *config.Config)

// Watcher 监听配置文件写入，防抖后重新加载
type Watcher struct {
	watcher  *fsnotify.Watcher
	path     string
	debounce time.Duration
	reloader ConfigReloader
	done     chan struct{}
}

// New 监听配置文件所在目录，编辑器以 rename 方式保存时也能收到事件
func New(configFile string, reloader ConfigReloader) (*Watcher, error) {
	absPath, err := filepath.Abs(configFile)
	if err != nil {
		return nil, err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(filepath.Dir(absPath)); err != nil {
		w.Close()
		return nil, err
	}

	return &Watcher{
		watcher:  w,
		path:     absPath,
		debounce: time.Second,
		reloader: reloader,
		done:     make(chan struct{}),
	}, nil
}

// Run 阻塞直到 Close
func (w *Watcher) Run() {
	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				// 防抖处理
				timer.Reset(w.debounce)
			}
		case <-timer.C:
			newCfg, err := config.LoadConfig(filepath.Dir(w.path))
			if err != nil {
				logger.Log.Error("Failed to reload config", zap.Error(err))
				continue
			}
			logger.Log.Info("Config reloaded", zap.String("file", w.path))
			w.reloader(newCfg)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logger.Log.Error("Config watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) Close() error {
	close(w.done)
	return w.watcher.Close()
}
