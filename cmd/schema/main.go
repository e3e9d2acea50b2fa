package main

import (
	"log"
	"os"
	"path/filepath"

	"github.com/rxtech-lab/mtsim/internal/tester"
)

const (
	schemaName       = "tester-config.json"
	sampleConfigName = "tester-config.yaml"
)

// sampleConfig is written next to the schema on first run. The tester's
// date and leverage fields use custom string forms that yaml.Marshal of the
// zero config cannot produce, so the sample is a literal.
const sampleConfig = `bot_name: sma_cross_eurusd
symbols:
  - EURUSD
timeframe: H1
start_date: 01.01.2024 00:00
end_date: 01.03.2024 00:00
modelling: real_ticks
deposit: 10000
leverage: "1:100"
data_dir: history
report_dir: reports
`

func main() {
	config := tester.DefaultConfig()

	schemaPath := filepath.Join("./config", schemaName)
	samplePath := filepath.Join("./config", sampleConfigName)

	if err := generateSchemaFile(&config, schemaPath); err != nil {
		log.Fatalf("Failed to generate schema: %v", err)
	}

	log.Printf("Schema successfully generated at %s", schemaPath)

	written, err := generateSampleConfig(samplePath, schemaName)
	if err != nil {
		log.Fatalf("Failed to write sample config: %v", err)
	}

	if written {
		log.Printf("Sample config successfully generated at %s", samplePath)
	}
}

// generateSchemaFile writes the tester config JSON schema to path, creating
// parent directories as needed.
func generateSchemaFile(config *tester.Config, path string) error {
	schemaJSON, err := config.GenerateSchemaJSON()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	return os.WriteFile(path, []byte(schemaJSON), 0644)
}

// generateSampleConfig writes the annotated sample config unless the file
// already exists. It reports whether a file was written.
func generateSampleConfig(path, schemaName string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return false, err
	}

	content := getSchemaReference(schemaName) + sampleConfig

	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return false, err
	}

	return true, nil
}

// getSchemaReference returns the yaml-language-server header that points
// editors at the generated schema.
func getSchemaReference(schemaName string) string {
	return "# yaml-language-server: $schema=" + schemaName + "\n"
}
