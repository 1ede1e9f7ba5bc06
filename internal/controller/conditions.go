package controller

import (
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	nmcpv1 "github.com/nwrx/nmcp/internal/apis/nmcp/v1alpha1"
)

// setCondition upserts a condition by type, touching LastTransitionTime only
// when the status actually changes.
func setCondition(conditions []nmcpv1.MCPServerCondition, conditionType string, status metav1.ConditionStatus, reason, message string, generation int64) []nmcpv1.MCPServerCondition {
	now := metav1.Now()
	for i := range conditions {
		if conditions[i].Type != conditionType {
			continue
		}
		if conditions[i].Status != status {
			conditions[i].LastTransitionTime = now
		}
		conditions[i].Status = status
		conditions[i].Reason = reason
		conditions[i].Message = message
		conditions[i].ObservedGeneration = generation
		return conditions
	}
	return append(conditions, nmcpv1.MCPServerCondition{
		Type:               conditionType,
		Status:             status,
		Reason:             reason,
		Message:            message,
		LastTransitionTime: now,
		ObservedGeneration: generation,
	})
}

// clearCondition sets a condition False without deleting it, preserving
// transition history.
func clearCondition(conditions []nmcpv1.MCPServerCondition, conditionType string, generation int64) []nmcpv1.MCPServerCondition {
	return setCondition(conditions, conditionType, metav1.ConditionFalse, "", "", generation)
}
