package uploadserver

import "sheetdrop/golib"

// ConfigFromEnv reads the server settings from the environment. Uploads go to
// HYDROBOOST_INPUT_DIR, or golib.DefaultInputDir when it is unset.
func ConfigFromEnv() Config {
	return Config{
		Listen:   golib.GetEnv("LISTEN_ADDR", ":3000"),
		InputDir: golib.GetEnv("HYDROBOOST_INPUT_DIR", golib.DefaultInputDir()),
		Backend:  golib.GetEnv("STORAGE_BACKEND", BackendDisk),
		Minio: MinioConfig{
			Endpoint:  golib.GetEnv("MINIO_ENDPOINT", "localhost:9000"),
			AccessKey: golib.GetEnv("MINIO_ACCESS_KEY", "minioadmin"),
			SecretKey: golib.GetEnv("MINIO_SECRET_KEY", "minioadmin"),
			Bucket:    golib.GetEnv("MINIO_BUCKET", "input-spreadsheets"),
			Prefix:    golib.GetEnv("MINIO_PREFIX", ""),
			UseSSL:    golib.GetEnvBool("MINIO_USE_SSL", false),
		},
	}
}
