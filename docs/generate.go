package docs

// Regenerate docs.go after changing handler annotations.
//go:generate go run github.com/swaggo/swag/v2/cmd/swag@v2.0.0-rc5 init --dir ../cmd/server,../internal/interfaces/http,../internal/application/ledger,../internal/domain/ledger --generalInfo main.go --output . --outputTypes go --parseInternal
