package ratelimit

import (
	"log/slog"
	"sync"
	"time"
)

const (
	// DefaultPerMinute лимит вызовов в минуту на одного администратора
	DefaultPerMinute = 10
	// DefaultPerHour лимит вызовов в час на одного администратора
	DefaultPerHour = 100

	minuteWindow = time.Minute
	hourWindow   = time.Hour
)

// Config настройки limiter
type Config struct {
	// Now источник времени, по умолчанию time.Now
	Now func() time.Time
	// PerMinute максимальное число разрешенных вызовов в минутном окне
	PerMinute int
	// PerHour максимальное число разрешенных вызовов в часовом окне
	PerHour int
	// IdleTTL через сколько после последнего обращения состояние ключа удаляется.
	// По умолчанию равен часовому окну: к этому моменту оба счетчика все равно будут сброшены.
	IdleTTL time.Duration
	// SweepInterval период фоновой очистки. 0 - IdleTTL/2, отрицательное значение отключает очистку.
	SweepInterval time.Duration
}

// Decision результат попытки захвата квоты
type Decision struct {
	RetryAfter      time.Duration
	RemainingMinute int
	RemainingHour   int
	Allowed         bool
}

// Limiter ограничивает частоту вызовов по ключу (идентификатору администратора)
// двумя окнами: минутным и часовым.
type Limiter struct {
	states    map[string]*windowState
	logger    *slog.Logger
	now       func() time.Time
	stopC     chan struct{}
	perMinute int
	perHour   int
	idleTTL   time.Duration
	stopOnce  sync.Once
	mu        sync.RWMutex
}

// windowState счетчики одного ключа. Все поля защищены mu.
type windowState struct {
	minuteStart time.Time
	hourStart   time.Time
	lastSeen    time.Time
	minuteCount int
	hourCount   int
	evicted     bool
	mu          sync.Mutex
}

// New создает limiter и запускает фоновую очистку неактивных ключей
func New(cfg Config, logger *slog.Logger) *Limiter {
	if cfg.PerMinute <= 0 {
		cfg.PerMinute = DefaultPerMinute
	}
	if cfg.PerHour <= 0 {
		cfg.PerHour = DefaultPerHour
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = hourWindow
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}

	l := &Limiter{
		states:    make(map[string]*windowState),
		logger:    logger,
		now:       cfg.Now,
		stopC:     make(chan struct{}),
		perMinute: cfg.PerMinute,
		perHour:   cfg.PerHour,
		idleTTL:   cfg.IdleTTL,
	}

	interval := cfg.SweepInterval
	if interval == 0 {
		interval = cfg.IdleTTL / 2
	}
	if interval > 0 {
		go l.cleanup(interval)
	}

	return l
}

// TryAcquire пытается засчитать вызов для ключа.
// Отклоненный вызов не расходует квоту: инкремент откатывается.
func (l *Limiter) TryAcquire(key string) Decision {
	for {
		st := l.state(key)

		st.mu.Lock()
		if st.evicted {
			// состояние удалено очисткой между поиском и блокировкой, берем новое
			st.mu.Unlock()
			continue
		}

		d := l.acquire(st, l.now())
		st.mu.Unlock()

		if !d.Allowed {
			l.logger.Debug("rate limit exceeded",
				slog.String("key", key),
				slog.Int("remaining_minute", d.RemainingMinute),
				slog.Int("remaining_hour", d.RemainingHour))
		}
		return d
	}
}

// acquire применяет сброс окон и инкремент. Вызывается под st.mu.
func (l *Limiter) acquire(st *windowState, now time.Time) Decision {
	if now.Sub(st.minuteStart) >= minuteWindow {
		st.minuteCount = 0
		st.minuteStart = now
	}
	if now.Sub(st.hourStart) >= hourWindow {
		st.hourCount = 0
		st.hourStart = now
	}
	st.lastSeen = now

	st.minuteCount++
	st.hourCount++

	minuteExceeded := st.minuteCount > l.perMinute
	hourExceeded := st.hourCount > l.perHour

	if !minuteExceeded && !hourExceeded {
		return Decision{
			Allowed:         true,
			RemainingMinute: l.perMinute - st.minuteCount,
			RemainingHour:   l.perHour - st.hourCount,
		}
	}

	st.minuteCount--
	st.hourCount--

	var retryAfter time.Duration
	if minuteExceeded {
		retryAfter = st.minuteStart.Add(minuteWindow).Sub(now)
	}
	if hourExceeded {
		retryAfter = max(retryAfter, st.hourStart.Add(hourWindow).Sub(now))
	}

	return Decision{
		Allowed:         false,
		RemainingMinute: max(0, l.perMinute-st.minuteCount),
		RemainingHour:   max(0, l.perHour-st.hourCount),
		RetryAfter:      retryAfter,
	}
}

// state возвращает состояние ключа, создавая его при необходимости
func (l *Limiter) state(key string) *windowState {
	l.mu.RLock()
	st, exists := l.states[key]
	l.mu.RUnlock()
	if exists {
		return st
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	// повторная проверка: ключ мог создать конкурентный вызов
	if st, exists = l.states[key]; exists {
		return st
	}

	now := l.now()
	st = &windowState{minuteStart: now, hourStart: now, lastSeen: now}
	l.states[key] = st
	return st
}

// cleanup периодически удаляет неактивные ключи для экономии памяти
func (l *Limiter) cleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := l.sweep(); n > 0 {
				l.logger.Debug("rate limiter states evicted", slog.Int("count", n))
			}
		case <-l.stopC:
			return
		}
	}
}

// sweep удаляет ключи, к которым не обращались дольше idleTTL, и возвращает их число
func (l *Limiter) sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	evicted := 0
	for key, st := range l.states {
		st.mu.Lock()
		if now.Sub(st.lastSeen) >= l.idleTTL {
			st.evicted = true
			delete(l.states, key)
			evicted++
		}
		st.mu.Unlock()
	}
	return evicted
}

// Len возвращает число отслеживаемых ключей
func (l *Limiter) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.states)
}

// Stop останавливает фоновую очистку. Повторный вызов безопасен.
func (l *Limiter) Stop() {
	l.stopOnce.Do(func() {
		close(l.stopC)
	})
}
