package main

// General API documentation for swaggo. Run `swag init -g cmd/sessiond/docs.go` to regenerate.
//
// @title           sessiond API
// @version         1.0
// @description     HTTP API for single-sequence LLM generation sessions.
//
// @contact.name   sessiond maintainers
// @contact.url    https://github.com/your-org/sessiond
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
