package httputil_test

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/joywufn/portfolio-insight/backend/pkg/httputil"
	"github.com/joywufn/portfolio-insight/backend/pkg/logger"
)

// Example_rateLimited builds a client the way the upstream clients do:
// a token bucket for this process plus bounded retries
func Example_rateLimited() {
	client := httputil.NewWithTimeout(logger.Nop(), 10*time.Second).
		WithTokenBucket(0.5, 1).
		WithRetry(2, 500*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	body, err := client.GetBody(ctx, "https://www.twse.com.tw/rwd/zh/afterTrading/MI_INDEX?response=json")
	var statusErr *httputil.StatusError
	switch {
	case errors.As(err, &statusErr):
		fmt.Printf("upstream answered %d\n", statusErr.StatusCode)
	case err != nil:
		fmt.Printf("request failed: %v\n", err)
	default:
		fmt.Printf("received %d bytes\n", len(body))
	}
}
