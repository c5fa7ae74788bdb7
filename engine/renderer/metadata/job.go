package metadata

/** @brief Definition for the body of a job. Runs on a worker goroutine. */
type JobStart func(params interface{}) (interface{}, error)

/** @brief Definition for completion of a job. */
type JobOnComplete func(result interface{})

/** @brief Definition for the failure of a job. */
type JobOnFailure func(err error)

/** @brief Describes a type of job */
type JobType int

const (
	/**
	 * @brief A general job that does not have any specific thread requirements.
	 */
	JOB_TYPE_GENERAL JobType = 0x02
	/**
	 * @brief A resource loading job, such as decoding an image from disk.
	 */
	JOB_TYPE_RESOURCE_LOAD JobType = 0x04
	/**
	 * @brief Jobs whose callbacks touch GPU resources. Their OnComplete and
	 * OnFailure run on the UI goroutine when the job system is updated.
	 */
	JOB_TYPE_GPU_RESOURCE JobType = 0x08
)

/**
 * @brief Describes a job to be run.
 */
type JobTask struct {
	JobType JobType
	/** @brief Invoked on a worker. Required. */
	OnStart JobStart
	/** @brief Invoked with the result of OnStart when it succeeds. Optional. */
	OnComplete JobOnComplete
	/** @brief Invoked with the error of OnStart when it fails. Optional. */
	OnFailure JobOnFailure
	/** @brief Invoked after OnComplete or OnFailure. Optional. */
	OnCompletionCallback func()
	/** @brief Data passed to OnStart. */
	InputParams interface{}
}

/** @brief A finished job waiting for its callbacks to run. */
type JobResultEntry struct {
	Task   JobTask
	Result interface{}
	Err    error
}

// The max number of job results that can be stored at once.
const MAX_JOB_RESULTS int = 512
