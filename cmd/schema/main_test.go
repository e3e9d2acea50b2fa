package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/rxtech-lab/mtsim/internal/tester"
)

type SchemaCmdTestSuite struct {
	suite.Suite
	tempDir string
	oldWd   string
}

func (suite *SchemaCmdTestSuite) SetupTest() {
	oldWd, err := os.Getwd()
	suite.Require().NoError(err)
	suite.oldWd = oldWd

	tempDir, err := os.MkdirTemp("", "schema-cmd-test")
	suite.Require().NoError(err)
	suite.tempDir = tempDir

	// main writes relative to the working directory
	err = os.Chdir(tempDir)
	suite.Require().NoError(err)
}

func (suite *SchemaCmdTestSuite) TearDownTest() {
	err := os.Chdir(suite.oldWd)
	suite.Require().NoError(err)

	err = os.RemoveAll(suite.tempDir)
	suite.Require().NoError(err)
}

func (suite *SchemaCmdTestSuite) TestSchemaGeneration() {
	main()

	configDir := filepath.Join(suite.tempDir, "config")
	suite.True(dirExists(configDir), "Config directory should exist")

	schemaPath := filepath.Join(configDir, "tester-config.json")
	suite.True(fileExists(schemaPath), "Schema file should exist")

	schemaContent, err := os.ReadFile(schemaPath)
	suite.Require().NoError(err)
	suite.NotEmpty(schemaContent, "Schema file should not be empty")
	suite.Contains(string(schemaContent), `"bot_name"`)
	suite.Contains(string(schemaContent), `"modelling"`)
}

func (suite *SchemaCmdTestSuite) TestSampleConfigGeneration() {
	main()

	samplePath := filepath.Join(suite.tempDir, "config", "tester-config.yaml")
	suite.True(fileExists(samplePath), "Sample config file should exist")

	sampleContent, err := os.ReadFile(samplePath)
	suite.Require().NoError(err)
	suite.Contains(string(sampleContent), "# yaml-language-server: $schema=tester-config.json")
}

func (suite *SchemaCmdTestSuite) TestSampleConfigParses() {
	main()

	samplePath := filepath.Join(suite.tempDir, "config", "tester-config.yaml")
	sampleContent, err := os.ReadFile(samplePath)
	suite.Require().NoError(err)

	// the shipped sample must stay a valid tester config
	config, err := tester.ParseConfig(sampleContent)
	suite.Require().NoError(err)
	suite.Equal([]string{"EURUSD"}, config.Symbols)
	suite.Equal(int64(100), config.Leverage)
	suite.Equal(tester.ModellingRealTicks, config.Modelling)
}

func (suite *SchemaCmdTestSuite) TestSampleConfigNotOverwritten() {
	main()

	samplePath := filepath.Join(suite.tempDir, "config", "tester-config.yaml")
	err := os.WriteFile(samplePath, []byte("my edited config"), 0644)
	suite.Require().NoError(err)

	main()

	content, err := os.ReadFile(samplePath)
	suite.Require().NoError(err)
	suite.Equal("my edited config", string(content), "Sample config should not be overwritten")
}

func (suite *SchemaCmdTestSuite) TestGenerateSchemaFile() {
	config := tester.DefaultConfig()
	schemaPath := filepath.Join(suite.tempDir, "nested", "dir", "schema.json")

	err := generateSchemaFile(&config, schemaPath)
	suite.Require().NoError(err)

	suite.True(fileExists(schemaPath), "Schema file should exist")

	content, err := os.ReadFile(schemaPath)
	suite.Require().NoError(err)
	suite.NotEmpty(content, "Schema content should not be empty")
}

func (suite *SchemaCmdTestSuite) TestGenerateSampleConfig() {
	samplePath := filepath.Join(suite.tempDir, "sample-config.yaml")

	written, err := generateSampleConfig(samplePath, "test-schema.json")
	suite.Require().NoError(err)
	suite.True(written, "First generation should write the file")

	content, err := os.ReadFile(samplePath)
	suite.Require().NoError(err)
	suite.Contains(string(content), "# yaml-language-server: $schema=test-schema.json")

	written, err = generateSampleConfig(samplePath, "test-schema.json")
	suite.Require().NoError(err)
	suite.False(written, "Second generation should leave the file alone")
}

func (suite *SchemaCmdTestSuite) TestGetSchemaReference() {
	suite.Equal("# yaml-language-server: $schema=tester-config.json\n", getSchemaReference("tester-config.json"))
	suite.Equal("# yaml-language-server: $schema=other.json\n", getSchemaReference("other.json"))
}

// Helper functions
func dirExists(path string) bool {
	info, err := os.Stat(path)
	return !os.IsNotExist(err) && info.IsDir()
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return !os.IsNotExist(err) && !info.IsDir()
}

func TestSchemaCmdSuite(t *testing.T) {
	suite.Run(t, new(SchemaCmdTestSuite))
}
