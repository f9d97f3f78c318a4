// Package cluster talks to the batch-job scheduler on behalf of the run
// state machine. It knows nothing about stages or runs: it creates,
// inspects, and deletes jobs it is handed, and nothing more.
package cluster

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
)

// defaultCallTimeout bounds every adapter call against the scheduler API:
// a single wedged API call must raise instead of stalling the tick.
const defaultCallTimeout = 30 * time.Second

// ErrBackendUnavailable is returned by Create when the scheduler rejects or
// cannot be reached to submit a job. It is the only error the run state
// machine treats as a StageSubmissionFailure.
var ErrBackendUnavailable = errors.New("cluster backend unavailable")

// JobHandle identifies a submitted job well enough to inspect or delete it
// later, without the caller needing to remember anything about its spec.
type JobHandle struct {
	Namespace string
	Name      string
}

// Activity reports whether a job is still doing work. ActivityUnknown is
// returned on a transient inspect error: the state machine treats it the
// same as still-active, so a blip in the scheduler API never misreads as
// completion.
type Activity int

const (
	ActivityUnknown Activity = iota
	ActivityActive
	ActivityInactive
)

// Driver is the narrow capability set the run state machine needs from the
// cluster scheduler. Implementations must make Delete idempotent: deleting
// an unknown handle is a no-op, not an error.
type Driver interface {
	Create(ctx context.Context, job *batchv1.Job) (JobHandle, error)
	Inspect(ctx context.Context, handle JobHandle) (Activity, string, error)
	Delete(ctx context.Context, handle JobHandle) (string, error)
}

// K8sDriver is a Driver backed by a real cluster via client-go's typed
// BatchV1 and CoreV1 clients. Every call is bounded by Timeout, so a
// wedged API server surfaces as an error instead of blocking the tick.
type K8sDriver struct {
	Client  kubernetes.Interface
	Timeout time.Duration
}

func NewK8sDriver(client kubernetes.Interface) *K8sDriver {
	return &K8sDriver{Client: client, Timeout: defaultCallTimeout}
}

func (d *K8sDriver) timeout() time.Duration {
	if d.Timeout > 0 {
		return d.Timeout
	}
	return defaultCallTimeout
}

func (d *K8sDriver) Create(ctx context.Context, job *batchv1.Job) (JobHandle, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout())
	defer cancel()

	created, err := d.Client.BatchV1().Jobs(job.Namespace).Create(ctx, job, metav1.CreateOptions{})
	if err != nil {
		return JobHandle{}, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	return JobHandle{Namespace: created.Namespace, Name: created.Name}, nil
}

// Inspect reports whether the job is still active and, if a pod backing it
// has failed, a "Failed: <reason>" condition string. Only the "Failed"
// prefix carries meaning to callers; everything else is diagnostic text.
func (d *K8sDriver) Inspect(ctx context.Context, handle JobHandle) (Activity, string, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout())
	defer cancel()

	job, err := d.Client.BatchV1().Jobs(handle.Namespace).Get(ctx, handle.Name, metav1.GetOptions{})
	if err != nil {
		if apierrors.IsNotFound(err) {
			return ActivityInactive, "", nil
		}
		return ActivityUnknown, "", fmt.Errorf("inspecting job %s/%s: %w", handle.Namespace, handle.Name, err)
	}

	for _, c := range job.Status.Conditions {
		if c.Type == batchv1.JobFailed && c.Status == corev1.ConditionTrue {
			return ActivityInactive, "Failed: " + c.Reason, nil
		}
	}
	for _, c := range job.Status.Conditions {
		if c.Type == batchv1.JobComplete && c.Status == corev1.ConditionTrue {
			return ActivityInactive, "Succeeded", nil
		}
	}

	if job.Status.Active > 0 {
		return ActivityActive, d.podCondition(ctx, handle), nil
	}

	// Not active, no terminal condition yet: ask the pods directly, the
	// conditions can lag a beat behind pod termination.
	podCondition := d.podCondition(ctx, handle)
	if strings.HasPrefix(podCondition, "Failed") {
		return ActivityInactive, podCondition, nil
	}
	return ActivityActive, podCondition, nil
}

func (d *K8sDriver) podCondition(ctx context.Context, handle JobHandle) string {
	pods, err := d.Client.CoreV1().Pods(handle.Namespace).List(ctx, metav1.ListOptions{
		LabelSelector: "job-name=" + handle.Name,
	})
	if err != nil || len(pods.Items) == 0 {
		return ""
	}

	// Prefer the most recent pod: a restarted pod replaces an earlier
	// failure.
	pod := pods.Items[len(pods.Items)-1]
	for _, cs := range pod.Status.ContainerStatuses {
		if cs.State.Terminated != nil && cs.State.Terminated.ExitCode != 0 {
			return "Failed: " + cs.State.Terminated.Reason
		}
	}
	switch pod.Status.Phase {
	case corev1.PodFailed:
		return "Failed: " + pod.Status.Reason
	case corev1.PodSucceeded:
		return "Succeeded"
	default:
		return string(pod.Status.Phase)
	}
}

func (d *K8sDriver) Delete(ctx context.Context, handle JobHandle) (string, error) {
	if handle.Name == "" {
		return "OK", nil
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout())
	defer cancel()

	propagation := metav1.DeletePropagationForeground
	err := d.Client.BatchV1().Jobs(handle.Namespace).Delete(ctx, handle.Name, metav1.DeleteOptions{
		PropagationPolicy: &propagation,
	})
	if err != nil && !apierrors.IsNotFound(err) {
		return "", fmt.Errorf("deleting job %s/%s: %w", handle.Namespace, handle.Name, err)
	}
	return "OK", nil
}
