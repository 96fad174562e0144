package cli

import (
    "context"
    "crypto/tls"
    "encoding/json"
    "fmt"
    "io"
    "log"
    "os"
    "os/signal"
    "path/filepath"
    "syscall"
    "time"

    "github.com/spf13/cobra"
    "gopkg.in/yaml.v3"

    "github.com/amirimatin/go-platform/pkg/bootstrap"
    "github.com/amirimatin/go-platform/pkg/internal/logutil"
    tracing "github.com/amirimatin/go-platform/pkg/observability/tracing"
    "github.com/amirimatin/go-platform/pkg/process"
    "github.com/amirimatin/go-platform/pkg/props"
    tlsx "github.com/amirimatin/go-platform/pkg/security/tlsconfig"
    "github.com/amirimatin/go-platform/pkg/transport"
    mgmtgrpc "github.com/amirimatin/go-platform/pkg/transport/grpc"
    httpjson "github.com/amirimatin/go-platform/pkg/transport/httpjson"
)

// AddAll attaches the platform subcommands (run/health/command) to root.
func AddAll(root *cobra.Command) {
    root.AddCommand(NewRunCmd())
    root.AddCommand(NewHealthCmd())
    root.AddCommand(NewCommandCmd())
}

// loadProps reads the properties file and completes defaults. home, when
// set, replaces platform.path.home.
func loadProps(path, home string) (*props.Props, error) {
    p, err := props.Load(path)
    if err != nil { return nil, err }
    if home != "" { p.Set(props.PathHome, home) }
    if err := props.CompleteDefaults(p); err != nil { return nil, err }
    return p, nil
}

// NewRunCmd returns the "run" command that starts the node health service.
func NewRunCmd() *cobra.Command {
    var (
        propsPath, home, mgmtAddr, mgmtProto, memAdv string
        publish                                      time.Duration
        traceEnable, jsonLog                         bool
    )
    cmd := &cobra.Command{
        Use:   "run",
        Short: "Run the node health service (standalone or clustered)",
        RunE: func(cmd *cobra.Command, args []string) error {
            ctx, cancel := signalContext()
            defer cancel()
            if jsonLog { logutil.SetJSON(true) }

            if traceEnable {
                shutdown, err := tracing.Setup(true)
                if err != nil {
                    log.Printf("tracing setup error: %v", err)
                } else {
                    defer func() { _ = shutdown(context.Background()) }()
                }
            }

            p, err := loadProps(propsPath, home)
            if err != nil { return err }
            cfg, err := bootstrap.FromProps(p)
            if err != nil { return err }
            if cmd.Flags().Changed("mgmt-addr") { cfg.MgmtAddr = mgmtAddr }
            if cmd.Flags().Changed("mgmt-proto") { cfg.MgmtProto = mgmtProto }
            cfg.MemAdv = memAdv
            cfg.PublishInterval = publish
            cfg.Logger = log.Default()

            n, err := bootstrap.Run(ctx, cfg)
            if err != nil { return err }
            defer n.Close()

            mode := "cluster"
            if n.IsStandalone() { mode = "standalone" }
            fmt.Fprintf(cmd.OutOrStdout(), "%s node %s running (%s). Press Ctrl+C to exit.\n", cfg.NodeType, cfg.NodeName, mode)
            <-ctx.Done()
            return nil
        },
    }
    cmd.Flags().StringVar(&propsPath, "props", "conf/platform.properties", "path to platform.properties")
    cmd.Flags().StringVar(&home, "home", "", "installation directory, overrides platform.path.home")
    cmd.Flags().StringVar(&mgmtAddr, "mgmt-addr", "", "management address (host:port), overrides platform.mgmt.addr")
    cmd.Flags().StringVar(&mgmtProto, "mgmt-proto", "", "management RPC protocol: http|grpc, overrides platform.mgmt.proto")
    cmd.Flags().StringVar(&memAdv, "mem-adv", "", "membership advertise addr (host:port, optional)")
    cmd.Flags().DurationVar(&publish, "publish-interval", 5*time.Second, "how often the node health is gossiped")
    cmd.Flags().BoolVar(&traceEnable, "trace", false, "enable OpenTelemetry stdout tracing (dev)")
    cmd.Flags().BoolVar(&jsonLog, "json-log", false, "log JSON lines")
    return cmd
}

// NewHealthCmd returns the "health" command.
func NewHealthCmd() *cobra.Command {
    var (
        addr, mgmtProto                       string
        timeout                               time.Duration
        tlsEnable, tlsSkip                    bool
        tlsCA, tlsCert, tlsKey, tlsServerName string
    )
    cmd := &cobra.Command{
        Use:   "health",
        Short: "Fetch the system health document as JSON",
        RunE: func(cmd *cobra.Command, args []string) error {
            var cliTLS *tls.Config
            if tlsEnable {
                topts := tlsx.Options{Enable: true, CAFile: tlsCA, CertFile: tlsCert, KeyFile: tlsKey, InsecureSkipVerify: tlsSkip, ServerName: tlsServerName}
                var err error
                cliTLS, err = topts.Client()
                if err != nil { return fmt.Errorf("tls client config: %w", err) }
            }
            var client transport.RPCClient
            switch mgmtProto {
            case "grpc":
                c := mgmtgrpc.NewClient(timeout)
                if cliTLS != nil { c.UseTLS(cliTLS) }
                defer c.Close()
                client = c
            default:
                c := httpjson.NewClient(timeout)
                if cliTLS != nil { c.UseTLS(cliTLS) }
                client = c
            }
            ctx, cancel := context.WithTimeout(context.Background(), timeout)
            defer cancel()
            data, err := client.GetHealth(ctx, addr)
            if err != nil { return fmt.Errorf("health error: %w", err) }
            out := cmd.OutOrStdout()
            out.Write(data)
            if len(data) == 0 || data[len(data)-1] != '\n' { out.Write([]byte("\n")) }
            return nil
        },
    }
    cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:9004", "management address of a node (host:port)")
    cmd.Flags().StringVar(&mgmtProto, "mgmt-proto", "http", "management RPC protocol: http|grpc")
    cmd.Flags().DurationVar(&timeout, "timeout", 3*time.Second, "request timeout")
    cmd.Flags().BoolVar(&tlsEnable, "tls-enable", false, "enable mTLS for management transport")
    cmd.Flags().StringVar(&tlsCA, "tls-ca", "", "path to CA cert (PEM)")
    cmd.Flags().StringVar(&tlsCert, "tls-cert", "", "path to client certificate (PEM)")
    cmd.Flags().StringVar(&tlsKey, "tls-key", "", "path to client private key (PEM)")
    cmd.Flags().BoolVar(&tlsSkip, "tls-skip-verify", false, "skip server cert verification (DEV ONLY)")
    cmd.Flags().StringVar(&tlsServerName, "tls-server-name", "", "expected server name (for TLS validation)")
    return cmd
}

// LaunchSpec is the printable form of a built command.
type LaunchSpec struct {
    Process    string            `json:"process" yaml:"process"`
    Index      int               `json:"index" yaml:"index"`
    WorkDir    string            `json:"workDir" yaml:"workDir"`
    Argv       []string          `json:"argv" yaml:"argv"`
    Env        map[string]string `json:"env" yaml:"env"`
    Suppressed []string          `json:"suppressedEnv" yaml:"suppressedEnv"`
    JvmOptions []string          `json:"jvmOptions" yaml:"jvmOptions"`
    ClassName  string            `json:"className,omitempty" yaml:"className,omitempty"`
    Classpath  []string          `json:"classpath,omitempty" yaml:"classpath,omitempty"`
    Settings   map[string]string `json:"settings,omitempty" yaml:"settings,omitempty"`
    Arguments  map[string]string `json:"arguments" yaml:"arguments"`
}

func esSpec(c *process.EsCommand) LaunchSpec {
    return LaunchSpec{
        Process:    c.ProcessID().String(),
        Index:      c.ProcessID().Index(),
        WorkDir:    c.WorkDir(),
        Argv:       c.Argv(),
        Env:        c.EnvVariables(),
        Suppressed: c.SuppressedEnvVariables(),
        JvmOptions: c.JvmOptions(),
        Settings:   c.Settings(),
        Arguments:  c.Arguments(),
    }
}

func webSpec(c *process.JavaCommand, argsFile string) LaunchSpec {
    return LaunchSpec{
        Process:    c.ProcessID().String(),
        Index:      c.ProcessID().Index(),
        WorkDir:    c.WorkDir(),
        Argv:       c.Argv(argsFile),
        Env:        c.EnvVariables(),
        Suppressed: c.SuppressedEnvVariables(),
        JvmOptions: c.JvmOptions(),
        ClassName:  c.ClassName(),
        Classpath:  c.Classpath(),
        Arguments:  c.Arguments(),
    }
}

func printSpec(w io.Writer, format string, s LaunchSpec) error {
    switch format {
    case "yaml":
        enc := yaml.NewEncoder(w)
        enc.SetIndent(2)
        if err := enc.Encode(s); err != nil { return err }
        return enc.Close()
    case "", "json":
        enc := json.NewEncoder(w)
        enc.SetIndent("", "  ")
        return enc.Encode(s)
    default:
        return fmt.Errorf("unknown format %q (json|yaml)", format)
    }
}

// NewCommandCmd returns the "command" command printing the launch
// specification of the search engine or the web server.
func NewCommandCmd() *cobra.Command {
    var (
        propsPath, home, format string
        write, leader           bool
    )
    build := func(cmd *cobra.Command) (*process.CommandFactory, *props.Props, error) {
        p, err := loadProps(propsPath, home)
        if err != nil { return nil, nil, err }
        logger := log.New(cmd.ErrOrStderr(), "", log.LstdFlags)
        return process.NewCommandFactory(p, p.Value(props.PathTemp), process.OS, logger), p, nil
    }

    parent := &cobra.Command{Use: "command", Short: "Print the launch specification of a child process"}
    parent.PersistentFlags().StringVar(&propsPath, "props", "conf/platform.properties", "path to platform.properties")
    parent.PersistentFlags().StringVar(&home, "home", "", "installation directory, overrides platform.path.home")
    parent.PersistentFlags().StringVar(&format, "format", "json", "output format: json|yaml")
    parent.PersistentFlags().BoolVar(&write, "write", false, "write the generated configuration files")

    search := &cobra.Command{
        Use:   "search",
        Short: "Search engine launch specification",
        RunE: func(cmd *cobra.Command, args []string) error {
            f, _, err := build(cmd)
            if err != nil { return err }
            c, err := f.CreateEsCommand()
            if err != nil { return err }
            if write {
                if err := process.WriteEsConfiguration(c); err != nil { return err }
            }
            return printSpec(cmd.OutOrStdout(), format, esSpec(c))
        },
    }
    web := &cobra.Command{
        Use:   "web",
        Short: "Web server launch specification",
        RunE: func(cmd *cobra.Command, args []string) error {
            f, p, err := build(cmd)
            if err != nil { return err }
            c, err := f.CreateWebCommand(leader)
            if err != nil { return err }
            argsFile := filepath.Join(p.Value(props.PathTemp), fmt.Sprintf("%s-args.properties", c.ProcessID()))
            if write {
                if err := c.WriteArguments(argsFile); err != nil { return err }
            }
            return printSpec(cmd.OutOrStdout(), format, webSpec(c, argsFile))
        },
    }
    web.Flags().BoolVar(&leader, "leader", true, "start as the startup leader")
    parent.AddCommand(search, web)
    return parent
}

func signalContext() (context.Context, context.CancelFunc) {
    ctx, cancel := context.WithCancel(context.Background())
    go func() {
        ch := make(chan os.Signal, 1)
        signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
        <-ch
        cancel()
    }()
    return ctx, cancel
}
