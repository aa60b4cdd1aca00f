package logsvc

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
	"github.com/pkg/errors"
	"github.com/rollbar/rollbar-go"
	rollbarerrors "github.com/rollbar/rollbar-go/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/user"
)

// Logger writes to zap and, when enabled, reports to Rollbar.
type Logger struct {
	zl      *zap.SugaredLogger
	rollbar bool
}

var _ core.Logger = (*Logger)(nil)

func levelFromString(l string, debug bool) zapcore.Level {
	switch strings.ToLower(l) {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	}
	if debug {
		return zapcore.DebugLevel
	}
	return zapcore.InfoLevel
}

func NewLogger(conf *core.Config) (*Logger, error) {
	lvl := levelFromString(conf.Log.Level, conf.Debug)

	var enc zapcore.Encoder
	if conf.Debug {
		encCfg := zap.NewDevelopmentEncoderConfig()
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		enc = zapcore.NewConsoleEncoder(encCfg)
	} else {
		encCfg := zap.NewProductionEncoderConfig()
		encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		enc = zapcore.NewJSONEncoder(encCfg)
	}

	cores := []zapcore.Core{zapcore.NewCore(enc, zapcore.Lock(os.Stdout), lvl)}
	if conf.Log.File != "" {
		w, err := rotatelogs.New(
			conf.Log.File+".%Y%m%d",
			rotatelogs.WithLinkName(conf.Log.File),
			rotatelogs.WithRotationTime(24*time.Hour),
			rotatelogs.WithMaxAge(7*24*time.Hour),
		)
		if err != nil {
			return nil, errors.Wrapf(err, "opening log file %s", filepath.Clean(conf.Log.File))
		}
		fileEnc := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
		cores = append(cores, zapcore.NewCore(fileEnc, zapcore.AddSync(w), lvl))
	}

	zl := zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddCallerSkip(1), zap.AddStacktrace(zapcore.ErrorLevel))

	l := &Logger{zl: zl.Sugar(), rollbar: conf.RollbarToken != "" && !conf.Debug}
	rollbar.SetToken(conf.RollbarToken)
	rollbar.SetEnvironment(conf.Env)
	rollbar.SetServerHost(conf.Server.Host)
	rollbar.SetCodeVersion(conf.Build)
	rollbar.SetStackTracer(rollbarerrors.StackTracer)
	rollbar.SetEnabled(l.rollbar)
	return l, nil
}

// NewNop returns a Logger that discards everything.
func NewNop() *Logger {
	return &Logger{zl: zap.NewNop().Sugar()}
}

// Sync flushes buffered entries and pending Rollbar reports.
func (l *Logger) Sync() error {
	if l.rollbar {
		rollbar.Wait()
	}
	return l.zl.Sync()
}

// prepare splits args into zap fields and rollbar arguments.
// expected fmt: error, map[string]interface{}, user.User
func (l *Logger) prepare(msg string, args []interface{}) (fields []interface{}, rbArgs []interface{}) {
	var usrSet bool
	rbArgs = make([]interface{}, 0, len(args)+1)
	rbArgs = append(rbArgs, msg)
	for i, arg := range args {
		switch a := arg.(type) {
		case user.User:
			if !usrSet { // only set one User
				if l.rollbar {
					rollbar.SetPerson(a.ID, a.Name, a.Email)
				}
				fields = append(fields, zap.String("user", a.ID))
				usrSet = true
			}
		case error:
			fields = append(fields, zap.Error(a))
			rbArgs = append(rbArgs, a)
		case map[string]interface{}:
			for k, v := range a {
				fields = append(fields, zap.Any(k, v))
			}
			rbArgs = append(rbArgs, a)
		default:
			fields = append(fields, zap.Any(fmt.Sprintf("arg%d", i), a))
		}
	}
	if !usrSet && l.rollbar {
		rollbar.ClearPerson()
	}
	return fields, rbArgs
}

func (l *Logger) Debug(msg string, args ...interface{}) {
	fields, _ := l.prepare(msg, args)
	l.zl.Debugw(msg, fields...)
}

func (l *Logger) Info(msg string, args ...interface{}) {
	fields, rbArgs := l.prepare(msg, args)
	l.zl.Infow(msg, fields...)
	if l.rollbar {
		rollbar.Info(rbArgs...)
	}
}

func (l *Logger) Warn(msg string, args ...interface{}) {
	fields, rbArgs := l.prepare(msg, args)
	l.zl.Warnw(msg, fields...)
	if l.rollbar {
		rollbar.Warning(rbArgs...)
	}
}

func (l *Logger) Error(msg string, args ...interface{}) {
	fields, rbArgs := l.prepare(msg, args)
	l.zl.Errorw(msg, fields...)
	if l.rollbar {
		rollbar.Error(rbArgs...)
	}
}

func (l *Logger) Fatal(msg string, args ...interface{}) {
	fields, rbArgs := l.prepare(msg, args)
	if l.rollbar {
		rollbar.Critical(rbArgs...)
		rollbar.Wait()
	}
	l.zl.Fatalw(msg, fields...)
}
