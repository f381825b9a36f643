package postgres

// Exposed for the usecase-level tests in package postgres_test.
var (
	StartRepo  = startRepo
	SeedMaster = seedMaster
)
