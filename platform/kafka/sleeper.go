package kafka

import (
	"context"
	"time"
)

// Sleeper задержка между попытками (подменяется в тестах)
type Sleeper interface {
	// Sleep ждёт d или отмены контекста
	Sleep(ctx context.Context, d time.Duration) error
}

// DefaultSleeper реализует Sleeper через time.After
type DefaultSleeper struct{}

func (DefaultSleeper) Sleep(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// backoff для попытки attempt (начиная со второй): base * 2^(attempt-2)
func backoff(base time.Duration, attempt int) time.Duration {
	if attempt < 2 {
		return 0
	}
	return base * time.Duration(1<<uint(attempt-2))
}

// maxDLQBackoff верхняя граница паузы между попытками отправки в DLQ
const maxDLQBackoff = 30 * time.Second

// dlqBackoff пауза после неудачной попытки try: base * 2^(try-1), не больше maxDLQBackoff
func dlqBackoff(base time.Duration, try int) time.Duration {
	if try > 16 {
		return maxDLQBackoff
	}
	d := base * time.Duration(1<<uint(try-1))
	if d <= 0 || d > maxDLQBackoff {
		return maxDLQBackoff
	}
	return d
}
