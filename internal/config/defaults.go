package config

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Storage.OutputDir == "" {
		cfg.Storage.OutputDir = "./output"
	}
	if cfg.Corpus.Extensions == nil {
		cfg.Corpus.Extensions = []string{".jpg", ".jpeg", ".png", ".bmp"}
	}
	if cfg.Corpus.MaxImages == 0 {
		cfg.Corpus.MaxImages = 1000
	}
	if cfg.Descriptor.Feature == "" {
		cfg.Descriptor.Feature = "gradient"
	}
	if cfg.Descriptor.Mode == "" {
		cfg.Descriptor.Mode = "global"
	}
	if cfg.Descriptor.CellSize == 0 {
		cfg.Descriptor.CellSize = 32
	}
	if cfg.Search.TopK == 0 {
		cfg.Search.TopK = 5
	}
}
