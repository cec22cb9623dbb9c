package agenda

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	apierrors "github.com/Apurer/agenda-client/internal/shared/errors"
)

// signInLimiter throttles POST /v1/session with a token bucket shared by all
// callers. A non-positive rate disables it.
func signInLimiter(perSecond float64, burst int) gin.HandlerFunc {
	if perSecond <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	if burst < 1 {
		burst = 1
	}
	limiter := rate.NewLimiter(rate.Limit(perSecond), burst)
	responder := apierrors.NewResponder()
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodPost || c.FullPath() != "/v1/session" {
			c.Next()
			return
		}
		reservation := limiter.Reserve()
		if delay := reservation.Delay(); delay > 0 {
			reservation.Cancel()
			c.Header("Retry-After", retryAfter(delay))
			responder.Respond(c, apierrors.ErrTooManyRequests.WithDetail("too many sign-in attempts, retry later"))
			return
		}
		c.Next()
	}
}

// retryAfter renders d as whole seconds, rounded up, for the Retry-After header.
func retryAfter(d time.Duration) string {
	secs := int64(math.Ceil(d.Seconds()))
	if secs < 1 {
		secs = 1
	}
	return strconv.FormatInt(secs, 10)
}
