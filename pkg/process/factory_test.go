package process

import (
    "bytes"
    "errors"
    "log"
    "os"
    "path/filepath"
    "strings"
    "testing"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/amirimatin/go-platform/pkg/props"
)

type fakeSystem struct {
    env     map[string]string
    windows bool
}

func (s fakeSystem) Getenv(name string) string { return s.env[name] }
func (s fakeSystem) IsWindows() bool           { return s.windows }

type fixture struct {
    home string
    temp string
    logs *bytes.Buffer
}

func newFixture(t *testing.T, withEs bool) fixture {
    t.Helper()
    home := t.TempDir()
    if withEs {
        bin := filepath.Join(home, "elasticsearch", "bin")
        require.NoError(t, os.MkdirAll(bin, 0o755))
        require.NoError(t, os.WriteFile(filepath.Join(bin, "elasticsearch"), []byte("#!/bin/sh\n"), 0o755))
    }
    return fixture{home: home, temp: t.TempDir(), logs: &bytes.Buffer{}}
}

func (fx fixture) factory(extra map[string]string, sys fakeSystem) *CommandFactory {
    m := map[string]string{props.PathHome: fx.home}
    for k, v := range extra { m[k] = v }
    return NewCommandFactory(props.New(m), fx.temp, sys, log.New(fx.logs, "", 0))
}

func TestJavaToolOptionsWarnsOncePerFactory(t *testing.T) {
    fx := newFixture(t, true)
    sys := fakeSystem{env: map[string]string{"JAVA_TOOL_OPTIONS": "-Xmx1g"}}

    f := fx.factory(nil, sys)
    _, err := f.CreateEsCommand()
    require.NoError(t, err)
    _, err = f.CreateWebCommand(true)
    require.NoError(t, err)

    out := fx.logs.String()
    assert.Equal(t, 1, strings.Count(out, "JAVA_TOOL_OPTIONS is defined but will be ignored"))
    assert.Contains(t, out, "Use properties platform.*.javaOpts and/or platform.*.javaAdditionalOpts in platform.properties to change JVM processes options")
}

func TestJavaToolOptionsWarnsOnceForEachFactory(t *testing.T) {
    fx := newFixture(t, true)
    sys := fakeSystem{env: map[string]string{"JAVA_TOOL_OPTIONS": "-Xmx1g"}}
    warnings := func() int { return strings.Count(fx.logs.String(), "JAVA_TOOL_OPTIONS is defined but will be ignored") }

    first := fx.factory(nil, sys)
    second := fx.factory(nil, sys)
    assert.Equal(t, 2, warnings())

    _, err := first.CreateWebCommand(true)
    require.NoError(t, err)
    _, err = second.CreateEsCommand()
    require.NoError(t, err)
    _, err = first.CreateEsCommand()
    require.NoError(t, err)
    assert.Equal(t, 2, warnings())
}

func TestNoWarningWithoutJavaToolOptions(t *testing.T) {
    fx := newFixture(t, true)
    f := fx.factory(nil, fakeSystem{})
    _, err := f.CreateWebCommand(false)
    require.NoError(t, err)
    assert.Empty(t, fx.logs.String())
}

func TestEsCommandFailsWithoutBinary(t *testing.T) {
    fx := newFixture(t, false)
    _, err := fx.factory(nil, fakeSystem{}).CreateEsCommand()
    require.Error(t, err)
    assert.True(t, errors.Is(err, ErrExecutableNotFound))
    assert.Contains(t, err.Error(), "cannot find elasticsearch binary")
}

func TestEsCommandLooksForBatOnWindows(t *testing.T) {
    fx := newFixture(t, true)
    _, err := fx.factory(nil, fakeSystem{windows: true}).CreateEsCommand()
    require.ErrorIs(t, err, ErrExecutableNotFound)
    assert.Contains(t, err.Error(), "elasticsearch.bat")
}

func TestEsCommandDefaults(t *testing.T) {
    fx := newFixture(t, true)
    sys := fakeSystem{env: map[string]string{"JAVA_HOME": "/opt/jdk", "JAVA_TOOL_OPTIONS": "-Dx=y"}}
    cmd, err := fx.factory(nil, sys).CreateEsCommand()
    require.NoError(t, err)

    confDir := filepath.Join(fx.temp, "conf", "es")
    assert.Equal(t, ProcessSearch, cmd.ProcessID())
    assert.Equal(t, "platform", cmd.ClusterName())
    assert.Equal(t, "127.0.0.1", cmd.Host())
    assert.Equal(t, 9001, cmd.Port())
    assert.Equal(t, filepath.Join(fx.home, "elasticsearch"), cmd.WorkDir())
    assert.Equal(t, filepath.Join(fx.home, "elasticsearch", "bin", "elasticsearch"), cmd.Executable())
    assert.Equal(t, []string{"-Epath.conf=" + confDir}, cmd.EsOptions())

    jvm := cmd.JvmOptions()
    assert.Contains(t, jvm, "-XX:+UseConcMarkSweepGC")
    assert.Contains(t, jvm, "-server")
    assert.Contains(t, jvm, "-Dfile.encoding=UTF-8")
    assert.Contains(t, jvm, "-Djava.io.tmpdir="+fx.temp)
    assert.Equal(t, []string{"-Xms512m", "-Xmx512m", "-XX:+HeapDumpOnOutOfMemoryError"}, jvm[len(jvm)-3:])

    env := cmd.EnvVariables()
    assert.Equal(t, filepath.Join(confDir, "jvm.options"), env["ES_JVM_OPTIONS"])
    assert.Equal(t, "/opt/jdk", env["JAVA_HOME"])
    assert.Equal(t, []string{"JAVA_TOOL_OPTIONS"}, cmd.SuppressedEnvVariables())

    assert.Equal(t, filepath.Join(fx.home, "logs", "es.log"), cmd.Log4j2Properties()["appender.file_es.fileName"])

    s := cmd.Settings()
    assert.Equal(t, "single-node", s["discovery.type"])
    assert.Equal(t, "9001", s["transport.tcp.port"])
    assert.Equal(t, filepath.Join(fx.home, "data", "es5"), s["path.data"])
}

func TestEsCommandOverrides(t *testing.T) {
    fx := newFixture(t, true)
    cmd, err := fx.factory(map[string]string{
        props.ClusterName:              "foo",
        props.SearchHost:               "10.0.0.2",
        props.SearchPort:               "1234",
        props.SearchJavaOpts:           "-Xms2g -Xmx2g",
        props.SearchJavaAdditionalOpts: "-XX:+PrintGC",
        props.PathLogs:                 "/var/log/platform",
    }, fakeSystem{}).CreateEsCommand()
    require.NoError(t, err)

    assert.Equal(t, "foo", cmd.ClusterName())
    assert.Equal(t, "10.0.0.2", cmd.Host())
    assert.Equal(t, 1234, cmd.Port())
    jvm := cmd.JvmOptions()
    assert.Equal(t, []string{"-Xms2g", "-Xmx2g", "-XX:+PrintGC"}, jvm[len(jvm)-3:])
    assert.NotContains(t, jvm, "-Xms512m")
    assert.Equal(t, filepath.Join("/var/log/platform", "es.log"), cmd.Log4j2Properties()["appender.file_es.fileName"])
}

func TestEsCommandClusterSettings(t *testing.T) {
    fx := newFixture(t, true)
    cmd, err := fx.factory(map[string]string{
        props.ClusterEnabled:     "true",
        props.ClusterSearchHosts: "a:9001, b:9001,c:9001",
        props.ClusterNodeName:    "search-a",
    }, fakeSystem{}).CreateEsCommand()
    require.NoError(t, err)

    s := cmd.Settings()
    assert.Equal(t, "a:9001,b:9001,c:9001", s["discovery.zen.ping.unicast.hosts"])
    assert.Equal(t, "2", s["discovery.zen.minimum_master_nodes"])
    assert.Equal(t, "search-a", s["node.name"])
    assert.NotContains(t, s, "discovery.type")
}

func TestEsCommandClusterRequiresSearchHosts(t *testing.T) {
    fx := newFixture(t, true)
    _, err := fx.factory(map[string]string{props.ClusterEnabled: "true"}, fakeSystem{}).CreateEsCommand()
    require.ErrorIs(t, err, props.ErrMissingProperty)
    assert.Contains(t, err.Error(), props.ClusterSearchHosts)

    _, err = fx.factory(map[string]string{props.ClusterEnabled: "true", props.ClusterSearchHosts: " , "}, fakeSystem{}).CreateEsCommand()
    require.ErrorIs(t, err, props.ErrMissingProperty)

    cmd, err := fx.factory(map[string]string{props.ClusterSearchHosts: ""}, fakeSystem{}).CreateEsCommand()
    require.NoError(t, err)
    assert.Equal(t, "single-node", cmd.Settings()["discovery.type"])
}

func TestEsCommandFreePort(t *testing.T) {
    fx := newFixture(t, true)
    cmd, err := fx.factory(map[string]string{props.SearchPort: "0"}, fakeSystem{}).CreateEsCommand()
    require.NoError(t, err)
    assert.Greater(t, cmd.Port(), 0)
}

func TestMandatoryOptionCannotBeOverridden(t *testing.T) {
    fx := newFixture(t, true)
    _, err := fx.factory(map[string]string{props.SearchJavaAdditionalOpts: "-Dfile.encoding=latin1"}, fakeSystem{}).CreateEsCommand()
    require.ErrorIs(t, err, ErrMandatoryOptionOverride)
    assert.Contains(t, err.Error(), props.SearchJavaAdditionalOpts)
}

func TestWebCommandDefaults(t *testing.T) {
    fx := newFixture(t, false)
    cmd, err := fx.factory(nil, fakeSystem{env: map[string]string{"JAVA_HOME": "/opt/jdk"}}).CreateWebCommand(true)
    require.NoError(t, err)

    assert.Equal(t, ProcessWeb, cmd.ProcessID())
    assert.Equal(t, fx.home, cmd.WorkDir())
    assert.Equal(t, WebServerClassName, cmd.ClassName())
    assert.Equal(t, filepath.Join("/opt/jdk", "bin", "java"), cmd.Executable())
    assert.Equal(t, []string{"./lib/common/*", "./lib/server/*"}, cmd.Classpath())
    assert.Equal(t, []string{
        "-Djava.awt.headless=true",
        "-Dfile.encoding=UTF-8",
        "-Djava.io.tmpdir=" + fx.temp,
        "-Xmx512m", "-Xms128m", "-XX:+HeapDumpOnOutOfMemoryError",
    }, cmd.JvmOptions())

    args := cmd.Arguments()
    assert.Equal(t, "-Xmx512m -Xms128m -XX:+HeapDumpOnOutOfMemoryError", args[props.WebJavaOpts])
    assert.Equal(t, "false", args[props.ClusterEnabled])
    assert.Equal(t, "web", args[ArgProcessKey])
    assert.Equal(t, "2", args[ArgProcessIndex])
    assert.Equal(t, fx.temp, args[ArgProcessSharedDir])
    assert.Equal(t, "true", args[props.ClusterWebStartupLeader])

    assert.Equal(t, "/opt/jdk", cmd.EnvVariables()["JAVA_HOME"])
    assert.Equal(t, []string{"JAVA_TOOL_OPTIONS"}, cmd.SuppressedEnvVariables())
}

func TestWebCommandJdbcDriverLast(t *testing.T) {
    fx := newFixture(t, false)
    cmd, err := fx.factory(map[string]string{
        props.JdbcDriverPath:        "lib/jdbc/h2/h2.jar",
        props.WebJavaOpts:           "-Xmx1g",
        props.WebJavaAdditionalOpts: "-Djava.io.tmpdir=/other",
    }, fakeSystem{}).CreateWebCommand(false)
    require.NoError(t, err)

    assert.Equal(t, []string{"./lib/common/*", "./lib/server/*", "lib/jdbc/h2/h2.jar"}, cmd.Classpath())
    jvm := cmd.JvmOptions()
    assert.Equal(t, []string{"-Xmx1g", "-Djava.io.tmpdir=/other"}, jvm[len(jvm)-2:])
    assert.Equal(t, "false", cmd.Arguments()[props.ClusterWebStartupLeader])
    assert.Equal(t, "java", cmd.Executable())
}

func TestWebCommandRequiresHome(t *testing.T) {
    f := NewCommandFactory(props.New(nil), t.TempDir(), fakeSystem{}, log.New(&bytes.Buffer{}, "", 0))
    _, err := f.CreateWebCommand(false)
    require.ErrorIs(t, err, props.ErrMissingProperty)
}

func TestCommandGettersReturnCopies(t *testing.T) {
    fx := newFixture(t, false)
    cmd, err := fx.factory(nil, fakeSystem{}).CreateWebCommand(false)
    require.NoError(t, err)

    cmd.Classpath()[0] = "mutated"
    cmd.JvmOptions()[0] = "mutated"
    cmd.Arguments()[ArgProcessKey] = "mutated"
    cmd.EnvVariables()["JAVA_HOME"] = "mutated"

    assert.Equal(t, "./lib/common/*", cmd.Classpath()[0])
    assert.Equal(t, "-Djava.awt.headless=true", cmd.JvmOptions()[0])
    assert.Equal(t, "web", cmd.Arguments()[ArgProcessKey])
    assert.Equal(t, "", cmd.EnvVariables()["JAVA_HOME"])
}
