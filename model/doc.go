// Package model defines the minimal generation and embedding interfaces
// consumed by the llm and embedding agent handlers, along with a MockModel
// for tests and examples. Provider implementations live in subpackages
// (openai, anthropic) so their SDK dependencies stay optional for consumers.
package model
