package process

import (
    "path/filepath"
    "strconv"
    "strings"

    "github.com/amirimatin/go-platform/pkg/discovery/static"
)

type esSettingsInput struct {
    clusterName    string
    nodeName       string
    host           string
    port           int
    httpPort       int
    dataDir        string
    logsDir        string
    clusterEnabled bool
    searchHosts    string
    minMasterNodes int
}

func esSettings(in esSettingsInput) map[string]string {
    s := map[string]string{
        "cluster.name":             in.clusterName,
        "node.name":                in.nodeName,
        "node.master":              "true",
        "node.data":                "true",
        "network.host":             in.host,
        "transport.tcp.port":       strconv.Itoa(in.port),
        "http.host":                in.host,
        "http.port":                strconv.Itoa(in.httpPort),
        "path.data":                filepath.Join(in.dataDir, "es5"),
        "path.logs":                in.logsDir,
        "action.auto_create_index": "false",
    }
    if !in.clusterEnabled {
        s["discovery.type"] = "single-node"
        return s
    }
    hosts := static.Parse(in.searchHosts)
    s["discovery.zen.ping.unicast.hosts"] = strings.Join(hosts, ",")
    minMaster := in.minMasterNodes
    if minMaster <= 0 { minMaster = len(hosts)/2 + 1 }
    s["discovery.zen.minimum_master_nodes"] = strconv.Itoa(minMaster)
    return s
}

func esLog4j2(logsDir string) map[string]string {
    const a = "appender.file_es."
    return map[string]string{
        "status":                     "ERROR",
        a + "type":                   "RollingFile",
        a + "name":                   "file_es",
        a + "fileName":               filepath.Join(logsDir, "es.log"),
        a + "filePattern":            filepath.Join(logsDir, "es.%d{yyyy-MM-dd}.log"),
        a + "layout.type":            "PatternLayout",
        a + "layout.pattern":         "%d{yyyy.MM.dd HH:mm:ss} %-5level es[][%logger{1.}] %msg%n",
        a + "policies.type":          "Policies",
        a + "policies.time.type":     "TimeBasedTriggeringPolicy",
        a + "policies.time.interval": "1",
        a + "policies.time.modulate": "true",
        a + "strategy.type":          "DefaultRolloverStrategy",
        a + "strategy.fileIndex":     "nomax",
        a + "strategy.action.type":   "Delete",
        a + "strategy.action.basepath": logsDir,
        a + "strategy.action.maxDepth": "1",
        a + "strategy.action.condition.type": "IfFileName",
        a + "strategy.action.condition.glob": "es*",
        a + "strategy.action.condition.nested_condition.type": "IfAccumulatedFileCount",
        a + "strategy.action.condition.nested_condition.exceeds": "7",
        "rootLogger.level": "INFO",
        "rootLogger.appenderRef.file_es.ref": "file_es",
    }
}
