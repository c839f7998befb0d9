/*
Package events provides an in-memory event broker for Sentinel's pub/sub
messaging.

Detection and execution publish lifecycle events; subscribers (the control
surface, dashboards, tests) consume them without coupling to the engine.
Publishing is fire-and-forget: a full subscriber buffer drops the event
for that subscriber rather than blocking the publisher.

# Event flow

	Publisher → Event Channel (buffer: 100)
	     ↓
	Broadcast Loop
	     ↓
	Subscriber Channels (buffer: 50 each)

# Event types

	Detection:
	  incident.detected
	  threshold.violated
	  threshold.recovered

	Remediation lifecycle:
	  remediation.started
	  remediation.blocked
	  remediation.resolved
	  remediation.failed
	  remediation.escalated

	Operator actions:
	  killswitch.changed
	  autonomy.changed
*/
package events
