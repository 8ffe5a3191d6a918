// Package audit provides default persistence for the go-stories AuditSink.
// The Repository implements both the sink (writes) and the AuditRepository
// read-side contract so commands can record who changed which narrative
// artifact and admin surfaces can query the trail later. Host applications
// can swap the repository if they prefer a different storage engine.
package audit
