package config

import (
	"context"
	"fmt"
	"runtime"
)

func init() {
	if BoolValue("HEALTH_DEBUG") {
		ctx := SetContextCorrelationId(context.Background(), "init")
		LogDebug(ctx, fmt.Sprintf("gamehealth config.init(): arch: %v", runtime.GOOS))
		LogDebug(ctx, "gamehealth config initialized with environment variable defaults")
	}
}
