package utils

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// LoadConfig reads a .env file from the given path (if present) and primes
// viper so every setting can come from either the file or the environment.
func LoadConfig(path string) {
	envPath := filepath.Join(path, ".env")
	if _, err := os.Stat(envPath); err == nil {
		if err := godotenv.Load(envPath); err != nil {
			logrus.Warnf("Failed to load %s: %v", envPath, err)
		}
	}

	viper.SetConfigFile(envPath)
	viper.SetConfigType("env")
	viper.AutomaticEnv()
	_ = viper.ReadInConfig()
}
