package discovery

// Discovery provides the seed addresses a node joins at startup.
type Discovery interface {
    Seeds() []string
}
