package cllog

import (
	"fmt"
	"io"
	"log/syslog"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"biostore/internal/models/clconfig"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

const service = "biostore"

// InitLogger remplace le logger global et celui utilisé par zerolog.Ctx
// quand la requête n'en porte pas
func InitLogger(cfg clconfig.LoggerConfig, production bool) error {
	zerolog.CallerMarshalFunc = func(pc uintptr, file string, line int) string {
		return path.Join(path.Base(path.Dir(file)), path.Base(file)) + ":" + strconv.Itoa(line)
	}
	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.SetGlobalLevel(parseLevel(cfg.Level))

	outputs, err := outputs(cfg, production)
	if err != nil {
		return err
	}

	log.Logger = zerolog.New(zerolog.MultiLevelWriter(outputs...)).
		With().
		Timestamp().
		Caller().
		Str("service", service).
		Logger()
	zerolog.DefaultContextLogger = &log.Logger

	env := "developpement"
	if production {
		env = "production"
	}
	log.Info().
		Str("environment", env).
		Str("level", zerolog.GlobalLevel().String()).
		Bool("log_to_file", cfg.File.Enable).
		Bool("log_to_syslog", cfg.Syslog.Enable).
		Msg("Logger initialized")
	return nil
}

// outputs: console en développement, JSON sur stdout en production sauf
// si un fichier ou syslog prend le relais
func outputs(cfg clconfig.LoggerConfig, production bool) ([]io.Writer, error) {
	var out []io.Writer
	if !production {
		out = append(out, zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "15:04:05"})
	}

	if cfg.File.Enable {
		w, err := fileWriter(cfg.File)
		if err != nil {
			return nil, fmt.Errorf("log fichier %s: %w", cfg.File.Path, err)
		}
		out = append(out, w)
	}

	if cfg.Syslog.Enable {
		w, err := syslogWriter(cfg.Syslog)
		if err != nil {
			return nil, fmt.Errorf("log syslog: %w", err)
		}
		out = append(out, w)
	}

	if len(out) == 0 {
		out = append(out, os.Stdout)
	}
	return out, nil
}

func parseLevel(level string) zerolog.Level {
	l, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || l == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return l
}

// fileWriter écrit dans un fichier à rotation, le dossier est créé au besoin
func fileWriter(cfg clconfig.LoggerFileConfig) (io.Writer, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("logger.file.path est vide")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0755); err != nil {
		return nil, err
	}
	return &lumberjack.Logger{
		Filename:   cfg.Path,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   cfg.Compress,
	}, nil
}

// syslogWriter se connecte au syslog local, ou distant si protocol et
// address sont renseignés. Chaque niveau zerolog part sur la priorité syslog
// correspondante.
func syslogWriter(cfg clconfig.LoggerSyslogConfig) (zerolog.LevelWriter, error) {
	tag := cfg.Tag
	if tag == "" {
		tag = service
	}
	priority := cfg.Priority
	if priority == 0 {
		priority = syslog.LOG_INFO | syslog.LOG_LOCAL0
	}

	var w *syslog.Writer
	var err error
	if cfg.Protocol == "" || cfg.Address == "" {
		w, err = syslog.New(priority, tag)
	} else {
		w, err = syslog.Dial(cfg.Protocol, cfg.Address, priority, tag)
	}
	if err != nil {
		return nil, err
	}
	return zerolog.SyslogLevelWriter(w), nil
}
