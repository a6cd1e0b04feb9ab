package retry

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(maxAttempts int) Config {
	return Config{
		MaxAttempts: maxAttempts,
		BaseDelay:   time.Millisecond,
	}
}

func TestDo(t *testing.T) {
	t.Run("succeeds first try", func(t *testing.T) {
		calls := 0
		v, err := Do(context.Background(), testConfig(3), func() (int, error) {
			calls++
			return 42, nil
		})

		require.NoError(t, err)
		assert.Equal(t, 42, v)
		assert.Equal(t, 1, calls)
	})

	t.Run("fails k times then succeeds after k+1 calls", func(t *testing.T) {
		calls := 0
		v, err := Do(context.Background(), testConfig(5), func() (int, error) {
			calls++
			if calls <= 2 {
				return 0, fmt.Errorf("transient failure %d", calls)
			}
			return 7, nil
		})

		require.NoError(t, err)
		assert.Equal(t, 7, v)
		assert.Equal(t, 3, calls)
	})

	t.Run("exhausts retries and surfaces the last error", func(t *testing.T) {
		calls := 0
		_, err := Do(context.Background(), testConfig(3), func() (int, error) {
			calls++
			return 0, fmt.Errorf("failure %d", calls)
		})

		require.Error(t, err)
		assert.Equal(t, 3, calls)
		assert.EqualError(t, err, "failure 3")
	})

	t.Run("permanent errors are not retried", func(t *testing.T) {
		calls := 0
		_, err := Do(context.Background(), testConfig(5), func() (int, error) {
			calls++
			return 0, Permanent(fmt.Errorf("token endpoint returned status 401"))
		})

		require.Error(t, err)
		assert.Equal(t, 1, calls)
		assert.EqualError(t, err, "token endpoint returned status 401")
	})

	t.Run("cancellation aborts a pending wait", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())

		calls := 0
		done := make(chan error, 1)
		go func() {
			_, err := Do(ctx, Config{MaxAttempts: 3, BaseDelay: time.Hour}, func() (int, error) {
				calls++
				return 0, fmt.Errorf("always failing")
			})
			done <- err
		}()

		// Let the first attempt fail and the driver enter its backoff wait.
		time.Sleep(50 * time.Millisecond)
		cancel()

		select {
		case err := <-done:
			require.Error(t, err)
			assert.Equal(t, 1, calls)
		case <-time.After(5 * time.Second):
			t.Fatal("retry did not observe cancellation")
		}
	})
}
