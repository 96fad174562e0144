package process

import (
    "bytes"
    "fmt"
    "os"
    "path/filepath"

    "gopkg.in/yaml.v3"

    "github.com/amirimatin/go-platform/pkg/props"
)

const (
    esJvmOptionsFile = "jvm.options"
    esYamlFile       = "elasticsearch.yml"
    esLog4j2File     = "log4j2.properties"
)

// WriteEsConfiguration writes the files the search engine reads at startup
// into cmd.ConfDir(): jvm.options, elasticsearch.yml and log4j2.properties.
// Existing files are replaced.
func WriteEsConfiguration(cmd *EsCommand) error {
    if err := os.MkdirAll(cmd.confDir, 0o755); err != nil {
        return fmt.Errorf("process: create %s: %w", cmd.confDir, err)
    }

    var jvm bytes.Buffer
    jvm.WriteString("# generated, do not edit\n")
    for _, o := range cmd.jvm.All() { jvm.WriteString(o + "\n") }
    if err := writeConf(cmd.confDir, esJvmOptionsFile, jvm.Bytes()); err != nil { return err }

    y, err := yaml.Marshal(cmd.settings)
    if err != nil { return fmt.Errorf("process: encode %s: %w", esYamlFile, err) }
    if err := writeConf(cmd.confDir, esYamlFile, y); err != nil { return err }

    return props.WriteFile(filepath.Join(cmd.confDir, esLog4j2File), cmd.log4j2)
}

func writeConf(dir, name string, data []byte) error {
    p := filepath.Join(dir, name)
    if err := os.WriteFile(p, data, 0o644); err != nil { return fmt.Errorf("process: write %s: %w", p, err) }
    return nil
}
