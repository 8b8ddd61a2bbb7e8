package workflow

import "fmt"

// Redis key layout. All keys are namespaced by instance name so multiple
// kudos deployments can share one Redis server.
//
//	kudos:{instance}:workflows                    hash: workflow ID -> descriptor JSON (running only)
//	kudos:{instance}:workflow:{id}:steps          hash: step name -> recorded output JSON
//	kudos:{instance}:workflow:{id}:signal:{name}  list: pending signal payloads

// runningKey returns the hash of in-flight workflow descriptors.
func runningKey(instanceName string) string {
	return fmt.Sprintf("kudos:%s:workflows", instanceName)
}

// stepsKey returns the step log hash for a workflow instance.
func stepsKey(instanceName, workflowID string) string {
	return fmt.Sprintf("kudos:%s:workflow:%s:steps", instanceName, workflowID)
}

// signalKey returns the pending-signal list for a named signal of a
// workflow instance.
func signalKey(instanceName, workflowID, signal string) string {
	return fmt.Sprintf("kudos:%s:workflow:%s:signal:%s", instanceName, workflowID, signal)
}
