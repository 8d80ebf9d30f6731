// Package authorizationservice implements the authorization registry
// inside the orchestration context.
//
// The module owns authorization templates and their access control, the
// external-domain registry with bridge proxy lifecycle, execution id
// allocation, mint-grant accounting, and terminal callback settlement. It
// keeps business rules in application/domain layers and isolates
// infrastructure concerns behind ports and adapters.
package authorizationservice
