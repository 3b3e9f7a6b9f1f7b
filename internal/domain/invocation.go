package domain

// Environment variable names shared by the launcher and the worker process.
const (
	EnvJobID               = "JOB_ID"
	EnvCode                = "CODE"
	EnvCloudinaryCloudName = "CLOUDINARY_CLOUD_NAME"
	EnvCloudinaryAPIKey    = "CLOUDINARY_API_KEY"
	EnvCloudinaryAPISecret = "CLOUDINARY_API_SECRET"
	EnvCallbackURL         = "CALLBACK_URL"
	EnvCallbackToken       = "CALLBACK_TOKEN"
)

// PublishCredentials are forwarded untouched to the worker so it can upload
// the rendered artifact.
type PublishCredentials struct {
	CloudName string
	APIKey    string
	APISecret string
}

// Callback tells the worker where to report its result. Zero value means the
// worker does not report back.
type Callback struct {
	URL   string
	Token string
}

// WorkerInvocation is everything a launched worker receives.
type WorkerInvocation struct {
	JobID       string
	Code        string
	Credentials PublishCredentials
	Callback    Callback
}

// EnvVar is a single container environment override.
type EnvVar struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Env flattens the invocation into the container environment overrides.
func (inv WorkerInvocation) Env() []EnvVar {
	env := []EnvVar{
		{Name: EnvJobID, Value: inv.JobID},
		{Name: EnvCode, Value: inv.Code},
		{Name: EnvCloudinaryCloudName, Value: inv.Credentials.CloudName},
		{Name: EnvCloudinaryAPIKey, Value: inv.Credentials.APIKey},
		{Name: EnvCloudinaryAPISecret, Value: inv.Credentials.APISecret},
	}
	if inv.Callback.URL != "" {
		env = append(env,
			EnvVar{Name: EnvCallbackURL, Value: inv.Callback.URL},
			EnvVar{Name: EnvCallbackToken, Value: inv.Callback.Token},
		)
	}
	return env
}
