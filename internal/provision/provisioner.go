package provision

// Provisioner prepares per-worker resources before a run
type Provisioner interface {
	Run(workerCount int) error
}

// Databases creates the per-worker databases and returns the worker ids
// that have one
type Databases interface {
	CheckAndCreateDatabases(workerCount int) ([]int, error)
}
