// Package schemasassets embeds the JSON schemas used to validate inputs.
//
// Embedding keeps validation independent of the working directory, which
// matters for the Lambda bootstrap binary.
package schemasassets

import _ "embed"

// S3EventNotificationSchema is the schema for S3 event notification documents.
//
//go:embed s3-event-notification.schema.json
var S3EventNotificationSchema []byte
