package membership

// HealthReporter is implemented by memberships able to report how well the
// local node reaches its peers. 0 is healthy, higher is worse, -1 means not
// started.
type HealthReporter interface {
    HealthScore() int
}
