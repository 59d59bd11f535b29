package domain

import "time"

// Forecast is one grid point at one validity time for one forecast cycle.
// (run_time, forecast_time, lat, lon) identifies a point but is not enforced unique.
type Forecast struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	RunTime      time.Time `gorm:"column:run_time;not null;index" json:"run_time"`
	ForecastTime time.Time `gorm:"column:forecast_time;not null;index" json:"forecast_time"`
	Lat          float64   `gorm:"column:lat;not null;index" json:"lat"`
	Lon          float64   `gorm:"column:lon;not null;index" json:"lon"`
	Temp2m       *float64  `gorm:"column:temp_2m" json:"temp_2m"`     // °C
	Wind10mU     *float64  `gorm:"column:wind10m_u" json:"wind10m_u"` // m/s
	Wind10mV     *float64  `gorm:"column:wind10m_v" json:"wind10m_v"` // m/s
	GHI          *float64  `gorm:"column:ghi" json:"ghi"`             // W/m²
}

// TableName pins the table name used by gorm.
func (Forecast) TableName() string { return "forecasts" }

// Item is a row of the demo items table.
type Item struct {
	ID          uint    `gorm:"primaryKey" json:"id"`
	Name        string  `gorm:"column:name;size:255;not null;index" json:"name"`
	Description *string `gorm:"column:description;type:text" json:"description"`
	Price       float64 `gorm:"column:price;not null" json:"price"`
}

func (Item) TableName() string { return "items" }

// WeatherSample is a row of the demo weather_samples table.
type WeatherSample struct {
	ID       uint    `gorm:"primaryKey" json:"id"`
	Location string  `gorm:"column:location;size:100;not null;index" json:"location"`
	TempC    float64 `gorm:"column:temp_c;not null" json:"temp_c"`
}

func (WeatherSample) TableName() string { return "weather_samples" }

// Todo is an in-memory task record.
type Todo struct {
	ID    int    `json:"id"`
	Title string `json:"title"`
	Done  bool   `json:"done"`
}

// IngestReport summarizes one completed ingest run.
type IngestReport struct {
	RunID        string    `json:"run_id"`
	SourceURL    string    `json:"source_url"`
	Member       string    `json:"member"`
	Mode         string    `json:"mode"`
	Mapping      string    `json:"mapping"`
	RunTime      time.Time `json:"run_time"`
	ForecastTime time.Time `json:"forecast_time"`
	Rows         int       `json:"rows"`
	StartedAt    time.Time `json:"started_at"`
	FinishedAt   time.Time `json:"finished_at"`
}
