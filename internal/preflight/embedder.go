package preflight

import (
	"context"
	"fmt"
	"time"

	"github.com/Aman-CERP/leedrag/internal/config"
	"github.com/Aman-CERP/leedrag/internal/embed"
)

// embedderProbeTimeout bounds the availability probe.
const embedderProbeTimeout = 5 * time.Second

// CheckEmbedder checks that the query embedder can be created and answers.
// It is not required: without it searches fall back to lexical only.
func (c *Checker) CheckEmbedder(ctx context.Context, cfg *config.Config) CheckResult {
	result := CheckResult{
		Name:     "embedder",
		Required: false,
	}

	e, err := embed.NewEmbedder(cfg.EmbedConfig())
	if err != nil {
		result.Status = StatusWarn
		result.Message = fmt.Sprintf("unavailable, dense retrieval disabled: %v", err)
		return result
	}
	defer func() { _ = e.Close() }()

	probeCtx, cancel := context.WithTimeout(ctx, embedderProbeTimeout)
	defer cancel()
	if !e.Available(probeCtx) {
		result.Status = StatusWarn
		result.Message = fmt.Sprintf("%s not reachable, dense retrieval disabled", e.ModelName())
		return result
	}

	result.Status = StatusPass
	result.Message = fmt.Sprintf("%s (%d dimensions)", e.ModelName(), e.Dimensions())
	return result
}
