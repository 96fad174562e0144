package process

import (
    "fmt"
    "os"
    "sort"
    "strings"

    "github.com/amirimatin/go-platform/pkg/props"
)

// command holds what every launch specification shares. Fields are set by
// CommandFactory only; accessors return copies.
type command struct {
    id         ProcessID
    workDir    string
    executable string
    env        map[string]string
    suppressed map[string]struct{}
    args       map[string]string
}

func newCommand(id ProcessID, workDir string) command {
    return command{id: id, workDir: workDir, env: map[string]string{}, suppressed: map[string]struct{}{}, args: map[string]string{}}
}

func (c *command) ProcessID() ProcessID { return c.id }
func (c *command) WorkDir() string      { return c.workDir }
func (c *command) Executable() string   { return c.executable }

// EnvVariables returns the variables set on the child on top of the
// inherited environment.
func (c *command) EnvVariables() map[string]string { return copyMap(c.env) }

// SuppressedEnvVariables returns the names that are never inherited by the
// child, in lexical order.
func (c *command) SuppressedEnvVariables() []string {
    out := make([]string, 0, len(c.suppressed))
    for k := range c.suppressed { out = append(out, k) }
    sort.Strings(out)
    return out
}

// Arguments returns the settings handed to the child process.
func (c *command) Arguments() map[string]string { return copyMap(c.args) }

// Environ derives the child environment from parent (os.Environ format):
// suppressed variables are dropped, command variables replace inherited ones.
func (c *command) Environ(parent []string) []string {
    out := make([]string, 0, len(parent)+len(c.env))
    for _, kv := range parent {
        name := kv
        if i := strings.IndexByte(kv, '='); i >= 0 { name = kv[:i] }
        if _, ok := c.suppressed[name]; ok { continue }
        if _, ok := c.env[name]; ok { continue }
        out = append(out, kv)
    }
    names := make([]string, 0, len(c.env))
    for k := range c.env { names = append(names, k) }
    sort.Strings(names)
    for _, k := range names { out = append(out, k+"="+c.env[k]) }
    return out
}

// WriteArguments stores the arguments as the java properties file the
// child reads at startup.
func (c *command) WriteArguments(path string) error { return props.WriteFile(path, c.args) }

// JavaCommand launches a JVM with a main class.
type JavaCommand struct {
    command
    className string
    classpath []string
    jvm       *JvmOptions
}

func (c *JavaCommand) ClassName() string    { return c.className }
func (c *JavaCommand) Classpath() []string  { return append([]string(nil), c.classpath...) }
func (c *JavaCommand) JvmOptions() []string { return c.jvm.All() }

// Argv is the full command line; argsFile is where WriteArguments stored
// the arguments.
func (c *JavaCommand) Argv(argsFile string) []string {
    out := []string{c.executable}
    out = append(out, c.jvm.All()...)
    out = append(out, "-cp", strings.Join(c.classpath, string(os.PathListSeparator)), c.className, argsFile)
    return out
}

// EsCommand launches the search engine through its own start script. Its
// JVM options are not on the command line: they are written to a
// jvm.options file referenced by ES_JVM_OPTIONS.
type EsCommand struct {
    command
    clusterName string
    host        string
    port        int
    confDir     string
    esOptions   []string
    jvm         *JvmOptions
    settings    map[string]string
    log4j2      map[string]string
}

func (c *EsCommand) ClusterName() string  { return c.clusterName }
func (c *EsCommand) Host() string         { return c.host }
func (c *EsCommand) Port() int            { return c.port }
func (c *EsCommand) ConfDir() string      { return c.confDir }
func (c *EsCommand) EsOptions() []string  { return append([]string(nil), c.esOptions...) }
func (c *EsCommand) JvmOptions() []string { return c.jvm.All() }

// Settings are the elasticsearch.yml entries.
func (c *EsCommand) Settings() map[string]string { return copyMap(c.settings) }

// Log4j2Properties configure the search engine's own log files.
func (c *EsCommand) Log4j2Properties() map[string]string { return copyMap(c.log4j2) }

func (c *EsCommand) Argv() []string {
    return append([]string{c.executable}, c.esOptions...)
}

func (c *EsCommand) String() string {
    return fmt.Sprintf("%s[%s:%d cluster=%s]", c.id, c.host, c.port, c.clusterName)
}

func copyMap(m map[string]string) map[string]string {
    out := make(map[string]string, len(m))
    for k, v := range m { out[k] = v }
    return out
}
