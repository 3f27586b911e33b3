package config

// fileConfig is the layout written by WriteDefault. Durations are strings so
// the file stays readable; credentials are left for the environment.
type fileConfig struct {
	DataDir string     `yaml:"data_dir,omitempty"`
	Portal  filePortal `yaml:"portal"`
	Mail    fileMail   `yaml:"mail"`
	Notify  fileNotify `yaml:"notify"`
	Crawl   fileCrawl  `yaml:"crawl"`
	Watch   fileWatch  `yaml:"watch"`
}

type filePortal struct {
	BaseURL     string `yaml:"base_url"`
	AuthURL     string `yaml:"auth_url"`
	ClientID    string `yaml:"client_id"`
	RedirectURI string `yaml:"redirect_uri"`
	Domain      string `yaml:"domain"`
	Timeout     string `yaml:"timeout"`
}

type fileMail struct {
	Host      string `yaml:"host"`
	Port      int    `yaml:"port"`
	Receivers string `yaml:"receivers"`
}

type fileNotify struct {
	Timezone     string `yaml:"timezone"`
	SummaryHour  int    `yaml:"summary_hour"`
	UrgentWindow string `yaml:"urgent_window"`
	NewContent   bool   `yaml:"new_content"`
}

type fileCrawl struct {
	Calendar       bool   `yaml:"calendar"`
	CalendarWindow string `yaml:"calendar_window"`
}

type fileWatch struct {
	IntervalMinutes int  `yaml:"interval_minutes"`
	Aligned         bool `yaml:"aligned"`
}

func defaultFile(dataDir string) fileConfig {
	return fileConfig{
		DataDir: dataDir,
		Portal: filePortal{
			BaseURL:     defaults["portal.base_url"].(string),
			AuthURL:     defaults["portal.auth_url"].(string),
			ClientID:    defaults["portal.client_id"].(string),
			RedirectURI: defaults["portal.redirect_uri"].(string),
			Domain:      defaults["portal.domain"].(string),
			Timeout:     defaults["portal.timeout"].(string),
		},
		Mail: fileMail{Port: defaults["mail.port"].(int)},
		Notify: fileNotify{
			Timezone:     defaults["notify.timezone"].(string),
			SummaryHour:  defaults["notify.summary_hour"].(int),
			UrgentWindow: defaults["notify.urgent_window"].(string),
		},
		Crawl: fileCrawl{CalendarWindow: defaults["crawl.calendar_window"].(string)},
		Watch: fileWatch{IntervalMinutes: defaults["watch.interval_minutes"].(int)},
	}
}
