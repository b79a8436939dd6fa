package domain

// SetupResult represents the result of running the setup command for a worker
type SetupResult struct {
	WorkerID int
	Database string
	Success  bool
	Output   string
	Error    error
}
