// Package openapi はOpenAPI仕様ファイルを埋め込みで提供する
package openapi

import _ "embed"

// Spec 埋め込まれたOpenAPI仕様（YAML形式）
//
//go:embed openapi.yaml
var Spec []byte
