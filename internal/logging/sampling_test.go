package logging

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewSampledCore_Disabled(t *testing.T) {
	core, _ := observer.New(zapcore.InfoLevel)

	assert.Equal(t, core, newSampledCore(core, SamplingConfig{Enabled: false}))
}

func TestNewSampledCore_ErrorsNeverSampled(t *testing.T) {
	core, observed := observer.New(zapcore.InfoLevel)
	sampled := newSampledCore(core, SamplingConfig{Enabled: true, Tick: time.Minute, Initial: 2, Thereafter: 0})
	logger := &Logger{zap: zap.New(sampled)}

	for i := 0; i < 50; i++ {
		logger.Error(context.Background(), "booking failed")
	}

	assert.Equal(t, 50, observed.FilterMessage("booking failed").Len())
}

func TestNewSampledCore_InfoIsSampled(t *testing.T) {
	core, observed := observer.New(zapcore.InfoLevel)
	sampled := newSampledCore(core, SamplingConfig{Enabled: true, Tick: time.Minute, Initial: 5, Thereafter: 0})
	logger := &Logger{zap: zap.New(sampled)}

	for i := 0; i < 100; i++ {
		logger.Info(context.Background(), "conversation analyzed")
	}

	assert.Equal(t, 5, observed.FilterMessage("conversation analyzed").Len())
}

func TestLevelFilterCore_WithPreservesRange(t *testing.T) {
	core, observed := observer.New(zapcore.DebugLevel)
	filtered := &levelFilterCore{Core: core, maxLevel: zapcore.WarnLevel, hasMax: true}

	child := filtered.With([]zapcore.Field{zap.String("k", "v")})

	assert.True(t, child.Enabled(zapcore.InfoLevel))
	assert.False(t, child.Enabled(zapcore.ErrorLevel))

	zap.New(child).Error("suppressed")
	zap.New(child).Info("kept")
	assert.Equal(t, 1, observed.Len())
}
