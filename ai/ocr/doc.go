// Package ocr implements ai.Recognizer over an HTTP recognition sidecar.
//
// The engine never renders pages or runs recognition models in-process;
// like embeddings, recognition is treated as a remote backend with a
// timeout and an availability error the caller can retry.
package ocr
