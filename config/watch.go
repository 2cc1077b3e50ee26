package config

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// HotReloader 基于 fsnotify 的配置热更新器。服务运行期间修改 YAML 即可在
// 下一次优化批次生效，无需重启。
type HotReloader struct {
	configPath string
	cooldown   time.Duration
	watcher    *fsnotify.Watcher

	mu         sync.RWMutex
	lastReload time.Time
	current    AppConfig

	onReload func(AppConfig)
	stopChan chan struct{}
	doneChan chan struct{}
}

// NewHotReloader creates a reloader watching configPath. cooldown suppresses
// the editor double-write bursts fsnotify reports for a single save.
func NewHotReloader(configPath string, cooldown time.Duration, onReload func(AppConfig)) (*HotReloader, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if cooldown <= 0 {
		cooldown = 2 * time.Second
	}
	initial, err := LoadWithEnvOverrides(configPath)
	if err != nil {
		watcher.Close()
		return nil, err
	}
	return &HotReloader{
		configPath: configPath,
		cooldown:   cooldown,
		watcher:    watcher,
		current:    initial,
		onReload:   onReload,
		stopChan:   make(chan struct{}),
		doneChan:   make(chan struct{}),
	}, nil
}

// Current returns the most recently loaded valid configuration.
func (h *HotReloader) Current() AppConfig {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current
}

// Start begins watching. 监听目录而不是文件本身，避免编辑器 rename 后丢失 watch。
func (h *HotReloader) Start() error {
	dir := filepath.Dir(h.configPath)
	if err := h.watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	go h.loop()
	return nil
}

func (h *HotReloader) loop() {
	defer close(h.doneChan)
	for {
		select {
		case <-h.stopChan:
			return
		case event, ok := <-h.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(h.configPath) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			h.tryReload()
		case _, ok := <-h.watcher.Errors:
			if !ok {
				return
			}
		}
	}
}

func (h *HotReloader) tryReload() {
	h.mu.Lock()
	if time.Since(h.lastReload) < h.cooldown {
		h.mu.Unlock()
		return
	}
	h.lastReload = time.Now()
	h.mu.Unlock()

	// 无效配置静默保留旧值；调用方通过日志观察 reload 是否生效
	cfg, err := LoadWithEnvOverrides(h.configPath)
	if err != nil {
		return
	}

	h.mu.Lock()
	h.current = cfg
	h.mu.Unlock()

	if h.onReload != nil {
		h.onReload(cfg)
	}
}

// Stop terminates the watch loop and releases the fsnotify watcher.
func (h *HotReloader) Stop() {
	close(h.stopChan)
	h.watcher.Close()
	<-h.doneChan
}
