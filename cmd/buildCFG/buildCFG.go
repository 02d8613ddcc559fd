package buildCFG

import (
	"github.com/rs/zerolog"
	"github.com/wb-go/wbf/config"
)

type ServerConfig struct {
	Port string
}

type StorageConfig struct {
	SnapshotPath string
	UploadsDir   string
}

type RabbitConfig struct {
	Url      string
	Exchange string
}

func BuildServerConfig(cfg *config.Config, log *zerolog.Logger) *ServerConfig {
	port := cfg.GetString("server.port")
	if port == "" {
		port = "8080"
		log.Warn().Msg("server.port not set, using default 8080")
	}
	return &ServerConfig{Port: port}
}

func BuildStorageConfig(cfg *config.Config, log *zerolog.Logger) *StorageConfig {
	snapshot := cfg.GetString("storage.snapshot_path")
	if snapshot == "" {
		snapshot = "data/state.json"
		log.Warn().Msg("storage.snapshot_path not set, using default data/state.json")
	}
	uploadsDir := cfg.GetString("storage.uploads_dir")
	if uploadsDir == "" {
		uploadsDir = "uploads"
		log.Warn().Msg("storage.uploads_dir not set, using default uploads")
	}
	return &StorageConfig{SnapshotPath: snapshot, UploadsDir: uploadsDir}
}

// BuildRabbitConfig reads the optional notifier settings. An empty url means
// the registration change feed stays off.
func BuildRabbitConfig(cfg *config.Config, log *zerolog.Logger) *RabbitConfig {
	url := cfg.GetString("rabbit.url")
	exchange := cfg.GetString("rabbit.exchange")
	if url != "" && exchange == "" {
		exchange = "registrations"
		log.Warn().Msg("rabbit.exchange not set, using default registrations")
	}
	return &RabbitConfig{Url: url, Exchange: exchange}
}
