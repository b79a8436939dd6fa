package cli

import "nbtp/internal/config"

// Flags holds command-line flags
type Flags struct {
	ProjectPath   string
	Processors    int
	TestPath      string
	NameFilter    string
	Select        string
	ShowItems     bool
	FailFast      bool
	OnlyFailed    bool
	RerunFailures bool
	OpenFaills    bool
	Provision     bool
	NoDefault     bool
	Kernel        string
	Parameters    []string
	Debug         bool
	Limit         int
}

// ToConfigFlags converts CLI flags to config flags
func (f *Flags) ToConfigFlags() config.Flags {
	return config.Flags{
		Processors:    f.Processors,
		TestPath:      f.TestPath,
		NameFilter:    f.NameFilter,
		Select:        f.Select,
		ShowItems:     f.ShowItems,
		FailFast:      f.FailFast,
		OnlyFailed:    f.OnlyFailed,
		RerunFailures: f.RerunFailures,
		OpenFaills:    f.OpenFaills,
		Provision:     f.Provision,
		NoDefault:     f.NoDefault,
		Kernel:        f.Kernel,
		Parameters:    f.Parameters,
		Debug:         f.Debug,
		Limit:         f.Limit,
	}
}

// Apply stores the flags on cfg, including the project path
func (f *Flags) Apply(cfg *config.Config) {
	if f.ProjectPath != "" {
		cfg.ProjectPath = f.ProjectPath
	}
	cfg.Apply(f.ToConfigFlags())
}
