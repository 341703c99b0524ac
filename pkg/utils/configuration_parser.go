package utils

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v2"

	"github.com/edgesim/ttn-emulator-sdk-golang/pkg/entities"
)

type config interface {
	map[string]entities.Device | entities.IntegrationTTNConfig
}

func readTextFile(filepathName string) ([]byte, error) {
	fileContent, err := os.ReadFile(filepath.Clean(filepathName))
	return fileContent, err
}

func ConfigurationParser[T config](filepathName string, configEntity T) (T, error) {
	fileContent, err := readTextFile(filepath.Clean(filepathName))
	if err != nil {
		return configEntity, err
	}

	err = yaml.Unmarshal(fileContent, &configEntity)
	return configEntity, err
}
