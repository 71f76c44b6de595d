package types

// Config represents the application configuration
type Config struct {
	Storage struct {
		Protocol string `yaml:"protocol"` // URI scheme used by ResolvePath, defaults to "storage"
	} `yaml:"storage"`

	// Destinations maps a destination key to the backend that serves it
	Destinations map[string]*DestinationConfig `yaml:"destinations"`

	Ingest []IngestConfig `yaml:"ingest"`

	Tracking struct {
		StorageType   string `yaml:"storage_type"` // file or sqlite
		StoragePath   string `yaml:"storage_path"`
		RetentionDays int    `yaml:"retention_days"`
	} `yaml:"tracking"`

	Logging struct {
		Level         string `yaml:"level"`
		Format        string `yaml:"format"` // text, json or dev
		IncludeCaller bool   `yaml:"include_caller"`
	} `yaml:"logging"`
}

// DestinationConfig describes a single storage backend
type DestinationConfig struct {
	Type     string `yaml:"type"`               // local, memory, s3 or gdrive
	Template string `yaml:"template,omitempty"` // Name of the template to use

	Local struct {
		Root string `yaml:"root"`
	} `yaml:"local"`

	S3 struct {
		Endpoint  string `yaml:"endpoint"`
		Region    string `yaml:"region"`
		Bucket    string `yaml:"bucket"`
		AccessKey string `yaml:"access_key"`
		SecretKey string `yaml:"secret_key"`
		Prefix    string `yaml:"prefix"`
	} `yaml:"s3"`

	GDrive struct {
		CredentialsFile string `yaml:"credentials_file"`
		ParentFolderID  string `yaml:"parent_folder_id"`
	} `yaml:"gdrive"`

	// Metadata enables the badger-backed metadata store for backends that
	// cannot hold object metadata themselves
	Metadata struct {
		Enabled bool   `yaml:"enabled"`
		Dir     string `yaml:"dir"` // empty keeps metadata in memory
	} `yaml:"metadata"`
}

// IngestConfig describes a directory sweep that uploads new files to a destination
type IngestConfig struct {
	ID                string `yaml:"id"`
	Enabled           bool   `yaml:"enabled"`
	SourceDir         string `yaml:"source_dir"`
	Destination       string `yaml:"destination"`
	Dir               string `yaml:"dir"`
	Pattern           string `yaml:"pattern"`
	SanitizeFilenames bool   `yaml:"sanitize_filenames"`
	DeleteSource      bool   `yaml:"delete_source"`
	MaxSize           int64  `yaml:"max_size"`

	Schedule struct {
		FrequencyEvery  string `yaml:"frequency_every"` // minute, hour, day, week
		FrequencyAmount int    `yaml:"frequency_amount"`
		StartNow        bool   `yaml:"start_now"`
		StartAt         string `yaml:"start_at"` // UTC DateTime
		StopAt          string `yaml:"stop_at"`  // UTC DateTime
	} `yaml:"schedule"`
}
