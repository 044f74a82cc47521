package appidentityassets

import _ "embed"

// YAML is the embedded copy of the app identity manifest so the binary
// behaves the same when no external `.fulmen/app.yaml` is discoverable.
//
//go:embed app.yaml
var YAML []byte
