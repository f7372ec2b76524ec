// Package fixtures seeds a registry from a YAML file. The serve command uses
// it to start with prepared databases, tests use it to share data sets.
package fixtures
