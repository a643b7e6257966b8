// Package services implements the core application logic: content
// versioning, batch ingestion, retrieval and analysis dispatch. It
// depends only on the domain and the port interfaces.
package services
