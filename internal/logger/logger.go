package logger

import (
	"app/internal/config"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Newは設定からzapロガーを作る。devは色付きコンソール、それ以外はJSON。
func New(cfg config.Config) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	if cfg.GoEnv == "dev" {
		c := zap.NewDevelopmentConfig()
		c.Level = lvl
		c.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		return c.Build()
	}

	c := zap.NewProductionConfig()
	c.Level = lvl
	return c.Build()
}
