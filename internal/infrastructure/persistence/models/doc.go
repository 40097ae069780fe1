// Package models contains the GORM persistence models of the integration
// layer. Models stay separate from domain values; each one converts with
// ToDomain and FromDomain.
package models
