package process

import (
    "fmt"
    "strings"

    "github.com/amirimatin/go-platform/pkg/props"
)

// JvmOptions is an ordered list of JVM flags. Mandatory flags come first
// and can never be changed by later additions; other flags may repeat, in
// which case the JVM keeps the last one.
type JvmOptions struct {
    mandatory []string
    options   []string
}

// NewJvmOptions starts a list with the given mandatory options.
func NewJvmOptions(mandatory ...string) *JvmOptions {
    return &JvmOptions{
        mandatory: append([]string(nil), mandatory...),
        options:   append([]string(nil), mandatory...),
    }
}

// Add appends a single option.
func (o *JvmOptions) Add(opt string) error {
    opt = strings.TrimSpace(opt)
    if opt == "" { return nil }
    if full, ok := o.overridesMandatory(opt); ok {
        return fmt.Errorf("%w: %q conflicts with %q", ErrMandatoryOptionOverride, opt, full)
    }
    o.options = append(o.options, opt)
    return nil
}

// AddFromMandatoryProperty appends the whitespace separated options held by
// key, falling back to the documented default of key. The whole string is
// used as is: a user value replaces the default entirely.
func (o *JvmOptions) AddFromMandatoryProperty(p *props.Props, key string) error {
    v := p.Value(key)
    if v == "" {
        def, ok := props.Default(key)
        if !ok { return fmt.Errorf("%w: %s", props.ErrMissingProperty, key) }
        v = def
    }
    return o.addAll(key, v)
}

// AddFromProperty appends the options held by key, if any.
func (o *JvmOptions) AddFromProperty(p *props.Props, key string) error {
    return o.addAll(key, p.Value(key))
}

func (o *JvmOptions) addAll(key, value string) error {
    var invalid []string
    for _, opt := range strings.Fields(value) {
        if _, ok := o.overridesMandatory(opt); ok { invalid = append(invalid, opt); continue }
        o.options = append(o.options, opt)
    }
    if len(invalid) > 0 {
        return fmt.Errorf("%w: options defined by property %q are invalid: %s", ErrMandatoryOptionOverride, key, strings.Join(invalid, " "))
    }
    return nil
}

// overridesMandatory returns the first mandatory option, in declaration
// order, that opt would change.
func (o *JvmOptions) overridesMandatory(opt string) (string, bool) {
    for _, full := range o.mandatory {
        if strings.HasPrefix(opt, optionKey(full)) && opt != full { return full, true }
    }
    return "", false
}

// All returns a copy of the options in order.
func (o *JvmOptions) All() []string { return append([]string(nil), o.options...) }

func (o *JvmOptions) String() string { return strings.Join(o.options, " ") }

// optionKey is the part of an option that identifies the setting:
// "-Dname=" for system properties and -XX:Name=value flags, "-Xss" for the
// stack size, the whole option otherwise.
func optionKey(opt string) string {
    if i := strings.IndexByte(opt, '='); i >= 0 { return opt[:i+1] }
    if strings.HasPrefix(opt, "-Xss") { return "-Xss" }
    return opt
}

func newEsJvmOptions(tempDir string) *JvmOptions {
    return NewJvmOptions(
        "-XX:+UseConcMarkSweepGC",
        "-XX:CMSInitiatingOccupancyFraction=75",
        "-XX:+UseCMSInitiatingOccupancyOnly",
        "-XX:+AlwaysPreTouch",
        "-server",
        "-Xss1m",
        "-Djava.awt.headless=true",
        "-Dfile.encoding=UTF-8",
        "-Djna.nosys=true",
        "-Djdk.io.permissionsUseCanonicalPath=true",
        "-Dio.netty.noUnsafe=true",
        "-Dio.netty.noKeySetOptimization=true",
        "-Dio.netty.recycler.maxCapacityPerThread=0",
        "-Dlog4j.shutdownHookEnabled=false",
        "-Dlog4j2.disable.jmx=true",
        "-Dlog4j.skipJansi=true",
        "-Djava.io.tmpdir="+tempDir,
    )
}

func newWebJvmOptions() *JvmOptions {
    return NewJvmOptions(
        "-Djava.awt.headless=true",
        "-Dfile.encoding=UTF-8",
    )
}
