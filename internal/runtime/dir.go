package runtime

import (
	"os"
	"path/filepath"
)

// EnvDir names the environment variable that overrides the options
// directory location.
const EnvDir = "SETPOINT_DIR"

const (
	etcDir   = "/etc/setpoint"
	localDir = "setpoint"

	schemasSubdir = "schemas"
	valuesSubdir  = "values"
	valuesFile    = "values.json"
)

// ResolveDir returns the options directory: $SETPOINT_DIR when set, then
// /etc/setpoint when it exists, otherwise ./setpoint. The directory is
// expected to hold schemas/ and values/ subdirectories.
func ResolveDir() string {
	if dir := os.Getenv(EnvDir); dir != "" {
		return dir
	}
	if _, err := os.Stat(etcDir); err == nil {
		return etcDir
	}
	return localDir
}

// SchemasDir returns the schema tree under an options directory.
func SchemasDir(dir string) string {
	return filepath.Join(dir, schemasSubdir)
}

// ValuesDir returns the values tree under an options directory.
func ValuesDir(dir string) string {
	return filepath.Join(dir, valuesSubdir)
}

func valuesPath(dir, namespace string) string {
	return filepath.Join(dir, valuesSubdir, namespace, valuesFile)
}
