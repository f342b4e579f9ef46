package deps

import (
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/antenna/internal/logger"
	"github.com/MrSnakeDoc/antenna/internal/saver"
	"github.com/MrSnakeDoc/antenna/internal/service"
)

type Deps struct {
	Logger      logger.Logger
	StartTime   time.Time
	Version     string
	Commit      string
	BuildDate   string
	GoVersion   string
	TimeNow     func() time.Time // for testing, defaults to time.Now
	RedisClient *redis.Client    // Redis client connection
	Core        *service.Core    // arbitration core and service registry
	Saver       *saver.Queue     // background persistence queue
}
