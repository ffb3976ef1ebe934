package docs_test

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/temirov/goose/cmd/cli"
)

const (
	readmeFileNameConstant           = "README.md"
	yamlFenceStartConstant           = "```yaml"
	yamlFenceEndConstant             = "```"
	configHeaderMarkerConstant       = "# config.yaml"
	parentDirectoryReferenceConstant = ".."
	missingHeaderMessageConstant     = "README example missing config header marker"
	missingStartFenceMessageConstant = "README example missing yaml fence start"
	missingEndFenceMessageConstant   = "README example missing yaml fence end"
)

type configurationSections map[string]map[string]any

func readReadmeConfigurationSnippet(testInstance *testing.T) string {
	workingDirectory, workingDirectoryError := os.Getwd()
	require.NoError(testInstance, workingDirectoryError)

	contentBytes, readError := os.ReadFile(filepath.Join(workingDirectory, parentDirectoryReferenceConstant, readmeFileNameConstant))
	require.NoError(testInstance, readError)

	contentText := string(contentBytes)
	headerIndex := strings.Index(contentText, configHeaderMarkerConstant)
	require.NotEqual(testInstance, -1, headerIndex, missingHeaderMessageConstant)

	fenceStartIndex := strings.LastIndex(contentText[:headerIndex], yamlFenceStartConstant)
	require.NotEqual(testInstance, -1, fenceStartIndex, missingStartFenceMessageConstant)

	fenceEndRelativeIndex := strings.Index(contentText[headerIndex:], yamlFenceEndConstant)
	require.NotEqual(testInstance, -1, fenceEndRelativeIndex, missingEndFenceMessageConstant)

	return strings.TrimSpace(contentText[fenceStartIndex+len(yamlFenceStartConstant) : headerIndex+fenceEndRelativeIndex])
}

func sectionKeys(sections configurationSections) map[string][]string {
	keysBySection := map[string][]string{}
	for sectionName, section := range sections {
		keys := make([]string, 0, len(section))
		for key := range section {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		keysBySection[sectionName] = keys
	}
	return keysBySection
}

func TestReadmeConfigurationMatchesEmbeddedDefaults(testInstance *testing.T) {
	var readmeSections configurationSections
	require.NoError(testInstance, yaml.Unmarshal([]byte(readReadmeConfigurationSnippet(testInstance)), &readmeSections))

	embeddedContent, _ := cli.EmbeddedDefaultConfiguration()
	var embeddedSections configurationSections
	require.NoError(testInstance, yaml.Unmarshal(embeddedContent, &embeddedSections))

	require.Equal(testInstance, sectionKeys(embeddedSections), sectionKeys(readmeSections))
	require.Equal(testInstance, embeddedSections, readmeSections)
}
