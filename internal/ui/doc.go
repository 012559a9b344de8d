// Package ui turns git command lifecycle events into short console messages
// while detailed telemetry continues to flow through the structured logger.
package ui
