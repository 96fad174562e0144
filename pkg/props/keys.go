package props

// Property keys read from platform.properties.
const (
    PathHome = "platform.path.home"
    PathTemp = "platform.path.temp"
    PathLogs = "platform.path.logs"
    PathData = "platform.path.data"

    JavaHome = "platform.java.home"

    SearchHost                = "platform.search.host"
    SearchPort                = "platform.search.port"
    SearchHttpPort            = "platform.search.httpPort"
    SearchJavaOpts            = "platform.search.javaOpts"
    SearchJavaAdditionalOpts  = "platform.search.javaAdditionalOpts"
    SearchMinimumMasterNodes  = "platform.search.minimumMasterNodes"

    WebHost               = "platform.web.host"
    WebPort               = "platform.web.port"
    WebJavaOpts           = "platform.web.javaOpts"
    WebJavaAdditionalOpts = "platform.web.javaAdditionalOpts"

    JdbcDriverPath = "platform.jdbc.driverPath"

    ClusterEnabled           = "platform.cluster.enabled"
    ClusterName              = "platform.cluster.name"
    ClusterHosts             = "platform.cluster.hosts"
    ClusterSearchHosts       = "platform.cluster.search.hosts"
    ClusterNodeName          = "platform.cluster.node.name"
    ClusterNodeType          = "platform.cluster.node.type"
    ClusterNodeHost          = "platform.cluster.node.host"
    ClusterNodePort          = "platform.cluster.node.port"
    ClusterWebStartupLeader  = "platform.cluster.web.startupLeader"

    MgmtAddr           = "platform.mgmt.addr"
    MgmtProto          = "platform.mgmt.proto"
    MgmtTLSEnabled     = "platform.mgmt.tls.enabled"
    MgmtTLSCA          = "platform.mgmt.tls.ca"
    MgmtTLSCert        = "platform.mgmt.tls.cert"
    MgmtTLSKey         = "platform.mgmt.tls.key"
    MgmtTLSServerName  = "platform.mgmt.tls.serverName"
    MgmtTLSSkipVerify  = "platform.mgmt.tls.skipVerify"
)

// Documented defaults. Keys absent from this map have no default.
var defaults = map[string]string{
    PathTemp: "temp",
    PathLogs: "logs",
    PathData: "data",

    SearchHost:               "127.0.0.1",
    SearchPort:               "9001",
    SearchHttpPort:           "9002",
    SearchJavaOpts:           "-Xms512m -Xmx512m -XX:+HeapDumpOnOutOfMemoryError",
    SearchJavaAdditionalOpts: "",

    WebHost:               "0.0.0.0",
    WebPort:               "9000",
    WebJavaOpts:           "-Xmx512m -Xms128m -XX:+HeapDumpOnOutOfMemoryError",
    WebJavaAdditionalOpts: "",

    ClusterEnabled:  "false",
    ClusterName:     "platform",
    ClusterNodeType: "application",
    ClusterNodePort: "9003",

    MgmtAddr:       "127.0.0.1:9004",
    MgmtProto:      "http",
    MgmtTLSEnabled: "false",
}

// pathKeys are resolved against platform.path.home when relative.
var pathKeys = []string{PathTemp, PathLogs, PathData}

// Default returns the documented default of key and whether one exists.
func Default(key string) (string, bool) {
    v, ok := defaults[key]
    return v, ok
}

// Defaults returns a copy of every documented default.
func Defaults() map[string]string {
    out := make(map[string]string, len(defaults))
    for k, v := range defaults { out[k] = v }
    return out
}
