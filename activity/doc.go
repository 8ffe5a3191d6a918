// Package activity persists tool activities imported from external tools
// (github, jira, slack, confluence, figma, google-meet). The Repository
// implements the ToolActivityRepository contract; the enricher chain and the
// Importer wrap writes so ingestion can link cross-tool references and
// normalize payloads before rows land. Hosts that want a different storage
// engine can replace the repository wholesale.
package activity
