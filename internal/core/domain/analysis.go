package domain

// AnalysisOptions carries caller-supplied parameters into a plugin run.
type AnalysisOptions struct {
	// Query is the retrieval query for retrieve-then-reason plugins.
	Query string

	// K is the plugin-specific count: retrieved chunks, clusters, or
	// outliers depending on the plugin.
	K int

	// Options is the free-form plugin option string, such as a category
	// list for categorize or entity types for entity.
	Options string

	// Save requests write-back of persisted fields where supported.
	Save bool

	// Seed makes stochastic algorithms reproducible. Zero selects the
	// plugin default.
	Seed int64

	// OutputDir is where plugins place artifact files.
	OutputDir string
}

// AnalysisOutcome is the ephemeral result of a plugin run. Results only
// survive the run when the plugin persists them into chunk metadata.
type AnalysisOutcome struct {
	// Plugin is the name of the plugin that produced this outcome.
	Plugin string

	// Text is the human-readable result body.
	Text string

	// Clusters holds per-cluster results for the clustering plugin.
	Clusters []ClusterResult

	// Outliers holds scored records for the anomaly plugin, ordered by
	// ascending inlier score.
	Outliers []QueryResult

	// ArtifactPath names a file artifact produced as a side effect,
	// such as the visualize plugin's map image.
	ArtifactPath string
}

// ClusterResult describes one cluster found by the clustering plugin.
type ClusterResult struct {
	// Label is the cluster identifier, for example "cluster_3".
	Label string

	// AxialTheme is the short language-service-generated theme.
	AxialTheme string

	// ChunkIDs are the member chunk IDs.
	ChunkIDs []string

	// Samples are representative member texts used for display.
	Samples []string
}
