package process

import (
    "fmt"
    "log"
    "net"
    "os"
    "path/filepath"
    "strconv"

    "github.com/amirimatin/go-platform/pkg/discovery/static"
    "github.com/amirimatin/go-platform/pkg/internal/logutil"
    obsmetrics "github.com/amirimatin/go-platform/pkg/observability/metrics"
    "github.com/amirimatin/go-platform/pkg/props"
)

const (
    envJavaToolOptions = "JAVA_TOOL_OPTIONS"
    envJavaHome        = "JAVA_HOME"
    envEsJvmOptions    = "ES_JVM_OPTIONS"

    WebServerClassName = "org.platform.server.app.WebServer"

    ArgProcessKey       = "process.key"
    ArgProcessIndex     = "process.index"
    ArgProcessSharedDir = "process.sharedDir"
)

var webClasspath = []string{"./lib/common/*", "./lib/server/*"}

// CommandFactory turns the platform configuration into launch
// specifications. It holds no mutable state and can be shared.
type CommandFactory struct {
    props   *props.Props
    tempDir string
    sys     System
    logger  *log.Logger
}

// NewCommandFactory builds a factory over p. When the parent environment
// defines JAVA_TOOL_OPTIONS a warning is logged once, here: the variable is
// never passed to children.
func NewCommandFactory(p *props.Props, tempDir string, sys System, logger *log.Logger) *CommandFactory {
    if sys == nil { sys = OS }
    if logger == nil { logger = log.Default() }
    f := &CommandFactory{props: p, tempDir: tempDir, sys: sys, logger: logger}
    if sys.Getenv(envJavaToolOptions) != "" {
        logutil.Warnf(logger, "%s is defined but will be ignored. Use properties platform.*.javaOpts and/or platform.*.javaAdditionalOpts in platform.properties to change JVM processes options", envJavaToolOptions)
    }
    return f
}

// CreateEsCommand builds the search engine command.
func (f *CommandFactory) CreateEsCommand() (*EsCommand, error) {
    home, err := f.props.Path(props.PathHome)
    if err != nil { return nil, err }
    esHome := filepath.Join(home, "elasticsearch")
    exe := filepath.Join(esHome, "bin", "elasticsearch")
    if f.sys.IsWindows() { exe += ".bat" }
    if _, err := os.Stat(exe); err != nil {
        return nil, fmt.Errorf("cannot find elasticsearch binary %s: %w", exe, ErrExecutableNotFound)
    }

    host := f.props.ValueOr(props.SearchHost, mustDefault(props.SearchHost))
    port, err := f.port(props.SearchPort, host)
    if err != nil { return nil, err }
    httpPort, err := f.port(props.SearchHttpPort, host)
    if err != nil { return nil, err }
    clusterEnabled, err := f.props.Bool(props.ClusterEnabled, false)
    if err != nil { return nil, err }
    minMaster, err := f.props.Int(props.SearchMinimumMasterNodes, 0)
    if err != nil { return nil, err }
    var searchHosts string
    if clusterEnabled {
        if searchHosts, err = f.props.NonNullValue(props.ClusterSearchHosts); err != nil { return nil, err }
        if len(static.Parse(searchHosts)) == 0 { return nil, fmt.Errorf("%w: %s", props.ErrMissingProperty, props.ClusterSearchHosts) }
    }

    jvm := newEsJvmOptions(f.tempDir)
    if err := jvm.AddFromMandatoryProperty(f.props, props.SearchJavaOpts); err != nil { return nil, err }
    if err := jvm.AddFromProperty(f.props, props.SearchJavaAdditionalOpts); err != nil { return nil, err }

    logsDir := f.path(props.PathLogs, home)
    confDir := filepath.Join(f.tempDir, "conf", "es")
    cmd := &EsCommand{
        command:     newCommand(ProcessSearch, esHome),
        clusterName: f.props.ValueOr(props.ClusterName, mustDefault(props.ClusterName)),
        host:        host,
        port:        port,
        confDir:     confDir,
        esOptions:   []string{"-Epath.conf=" + confDir},
        jvm:         jvm,
        log4j2:      esLog4j2(logsDir),
    }
    cmd.executable = exe
    cmd.settings = esSettings(esSettingsInput{
        clusterName:    cmd.clusterName,
        nodeName:       f.props.ValueOr(props.ClusterNodeName, "search-"+strconv.Itoa(port)),
        host:           host,
        port:           port,
        httpPort:       httpPort,
        dataDir:        f.path(props.PathData, home),
        logsDir:        logsDir,
        clusterEnabled: clusterEnabled,
        searchHosts:    searchHosts,
        minMasterNodes: minMaster,
    })
    cmd.args = f.arguments()
    cmd.env[envEsJvmOptions] = filepath.Join(confDir, "jvm.options")
    f.commonEnv(&cmd.command)
    obsmetrics.CommandsBuilt.WithLabelValues(string(ProcessSearch)).Inc()
    return cmd, nil
}

// CreateWebCommand builds the web server command. leader tells the web
// server whether it performs the one-time startup tasks of the cluster.
func (f *CommandFactory) CreateWebCommand(leader bool) (*JavaCommand, error) {
    home, err := f.props.Path(props.PathHome)
    if err != nil { return nil, err }

    jvm := newWebJvmOptions()
    if err := jvm.Add("-Djava.io.tmpdir=" + f.tempDir); err != nil { return nil, err }
    if err := jvm.AddFromMandatoryProperty(f.props, props.WebJavaOpts); err != nil { return nil, err }
    if err := jvm.AddFromProperty(f.props, props.WebJavaAdditionalOpts); err != nil { return nil, err }

    cmd := &JavaCommand{
        command:   newCommand(ProcessWeb, home),
        className: WebServerClassName,
        classpath: append([]string(nil), webClasspath...),
        jvm:       jvm,
    }
    if driver := f.props.Value(props.JdbcDriverPath); driver != "" {
        cmd.classpath = append(cmd.classpath, driver)
    }
    cmd.executable = f.javaExecutable()
    cmd.args = f.arguments()
    cmd.args[ArgProcessKey] = string(ProcessWeb)
    cmd.args[ArgProcessIndex] = strconv.Itoa(ProcessWeb.Index())
    cmd.args[ArgProcessSharedDir] = f.tempDir
    cmd.args[props.ClusterWebStartupLeader] = strconv.FormatBool(leader)
    f.commonEnv(&cmd.command)
    obsmetrics.CommandsBuilt.WithLabelValues(string(ProcessWeb)).Inc()
    return cmd, nil
}

// arguments are the resolved properties: explicit values over documented
// defaults.
func (f *CommandFactory) arguments() map[string]string {
    out := props.Defaults()
    for k, v := range f.props.Raw() { out[k] = v }
    for k, v := range out {
        if v == "" { delete(out, k) }
    }
    return out
}

func (f *CommandFactory) commonEnv(c *command) {
    c.suppressed[envJavaToolOptions] = struct{}{}
    c.env[envJavaHome] = f.javaHome()
}

func (f *CommandFactory) javaHome() string {
    if v := f.props.Value(props.JavaHome); v != "" { return v }
    return f.sys.Getenv(envJavaHome)
}

func (f *CommandFactory) javaExecutable() string {
    name := "java"
    if f.sys.IsWindows() { name += ".exe" }
    if h := f.javaHome(); h != "" { return filepath.Join(h, "bin", name) }
    return name
}

// path resolves key (or its default) against home.
func (f *CommandFactory) path(key, home string) string {
    v := f.props.Value(key)
    if v == "" { v, _ = props.Default(key) }
    if !filepath.IsAbs(v) { v = filepath.Join(home, v) }
    return filepath.Clean(v)
}

// port reads key; 0 asks the system for a free port on host.
func (f *CommandFactory) port(key, host string) (int, error) {
    def, _ := strconv.Atoi(mustDefault(key))
    p, err := f.props.Int(key, def)
    if err != nil { return 0, err }
    if p < 0 || p > 65535 { return 0, fmt.Errorf("%w: %s=%d is not a port", props.ErrInvalidValue, key, p) }
    if p != 0 { return p, nil }
    return freePort(host)
}

func freePort(host string) (int, error) {
    l, err := net.Listen("tcp", net.JoinHostPort(host, "0"))
    if err != nil { return 0, fmt.Errorf("process: find free port on %s: %w", host, err) }
    defer l.Close()
    return l.Addr().(*net.TCPAddr).Port, nil
}

func mustDefault(key string) string {
    v, _ := props.Default(key)
    return v
}
