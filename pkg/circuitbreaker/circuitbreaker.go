package circuitbreaker

import (
	"errors"
	"sync"
	"time"
)

// State 表示熔断器状态
type State int

const (
	StateClosed   State = iota // 关闭：正常放行
	StateOpen                  // 打开：直接拒绝
	StateHalfOpen              // 半开：放行少量探测请求
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// ErrCircuitBreakerOpen 熔断器打开时返回
var ErrCircuitBreakerOpen = errors.New("circuit breaker is open")

// Config 熔断器配置
type Config struct {
	// 连续失败多少次后打开
	FailureThreshold int
	// 半开状态下成功多少次后关闭
	SuccessThreshold int
	// 打开状态持续多久后进入半开
	Timeout time.Duration
	// 半开状态下的最大并发探测数
	HalfOpenMaxRequests int
	// IsFailure 判断错误是否计入失败，为空时所有非 nil 错误都计入
	IsFailure func(error) bool
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		FailureThreshold:    5,
		SuccessThreshold:    2,
		Timeout:             30 * time.Second,
		HalfOpenMaxRequests: 3,
	}
}

// CircuitBreaker 熔断器
type CircuitBreaker struct {
	config Config
	now    func() time.Time

	mu            sync.Mutex
	state         State
	failureCount  int
	successCount  int
	halfOpenCount int
	openedAt      time.Time
}

// NewCircuitBreaker 创建新的熔断器
func NewCircuitBreaker(config Config) *CircuitBreaker {
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = 1
	}
	if config.SuccessThreshold <= 0 {
		config.SuccessThreshold = 1
	}
	if config.HalfOpenMaxRequests <= 0 {
		config.HalfOpenMaxRequests = 1
	}
	return &CircuitBreaker{config: config, now: time.Now}
}

// Execute 执行函数，带熔断保护
func (cb *CircuitBreaker) Execute(fn func() error) error {
	if err := cb.before(); err != nil {
		return err
	}

	err := fn()
	cb.after(err)
	return err
}

func (cb *CircuitBreaker) before() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateOpen && cb.now().Sub(cb.openedAt) >= cb.config.Timeout {
		cb.state = StateHalfOpen
		cb.halfOpenCount = 0
		cb.successCount = 0
	}

	switch cb.state {
	case StateOpen:
		return ErrCircuitBreakerOpen
	case StateHalfOpen:
		if cb.halfOpenCount >= cb.config.HalfOpenMaxRequests {
			return ErrCircuitBreakerOpen
		}
		cb.halfOpenCount++
	}
	return nil
}

func (cb *CircuitBreaker) after(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	failed := err != nil
	if failed && cb.config.IsFailure != nil {
		failed = cb.config.IsFailure(err)
	}

	if cb.state == StateHalfOpen {
		cb.halfOpenCount--
	}

	if failed {
		cb.failureCount++
		if cb.state == StateHalfOpen || cb.failureCount >= cb.config.FailureThreshold {
			cb.trip()
		}
		return
	}

	cb.failureCount = 0
	if cb.state == StateHalfOpen {
		cb.successCount++
		if cb.successCount >= cb.config.SuccessThreshold {
			cb.state = StateClosed
			cb.successCount = 0
		}
	}
}

func (cb *CircuitBreaker) trip() {
	cb.state = StateOpen
	cb.openedAt = cb.now()
	cb.halfOpenCount = 0
	cb.successCount = 0
}

// GetState 获取当前状态
func (cb *CircuitBreaker) GetState() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Reset 重置熔断器
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.state = StateClosed
	cb.failureCount = 0
	cb.successCount = 0
	cb.halfOpenCount = 0
}
