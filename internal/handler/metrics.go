package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/raids-lab/taskboard/dao/model"
	"github.com/raids-lab/taskboard/internal/resputil"
	"github.com/raids-lab/taskboard/pkg/hub"
)

type MetricsMgr struct {
	name string
	db   *gorm.DB
	hub  *hub.Hub
}

func NewMetricsMgr(conf *RegisterConfig) Manager {
	return &MetricsMgr{
		name: "metrics",
		db:   conf.DB,
		hub:  conf.Hub,
	}
}

func (mgr *MetricsMgr) GetName() string { return mgr.name }

func (mgr *MetricsMgr) RegisterPublic(metrics *gin.RouterGroup) {
	metrics.GET("", mgr.GetMetrics)
}

func (mgr *MetricsMgr) RegisterProtected(_ *gin.RouterGroup) {}

func (mgr *MetricsMgr) RegisterAdmin(_ *gin.RouterGroup) {}

var registry *prometheus.Registry

var promHTTPHandler http.Handler

var activeProjectsGauge = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "active_projects_total",
		Help: "Number of projects with active status",
	},
)

var openTasksGauge = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "open_tasks_total",
		Help: "Number of non-archived, non-completed tasks",
	},
)

var completedTasksGauge = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "completed_tasks_total",
		Help: "Number of completed tasks",
	},
)

var streamClientsGauge = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "stream_clients",
		Help: "Number of connected websocket clients",
	},
)

//nolint:gochecknoinits // This is the standard way to register a gin handler.
func init() {
	Registers = append(Registers, NewMetricsMgr)
	registry = prometheus.NewRegistry()
	promHTTPHandler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})
	registry.MustRegister(activeProjectsGauge)
	registry.MustRegister(openTasksGauge)
	registry.MustRegister(completedTasksGauge)
	registry.MustRegister(streamClientsGauge)
}

// GetMetrics godoc
// @Summary Expose workload gauges in Prometheus format
// @Description Counts are computed at scrape time
// @Tags Metrics
// @Produce plain
// @Success 200 {string} string "Metrics"
// @Failure 500 {object} resputil.Response[any] "Other errors"
// @Router /metrics [get]
func (mgr *MetricsMgr) GetMetrics(c *gin.Context) {
	var activeProjects, openTasks, completedTasks int64

	err := mgr.db.WithContext(c).Model(&model.Project{}).
		Where("status = ?", model.ProjectActive).Count(&activeProjects).Error
	if err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}
	err = mgr.db.WithContext(c).Model(&model.Task{}).
		Where("is_archived = ? AND status <> ?", false, model.TaskCompleted).Count(&openTasks).Error
	if err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}
	err = mgr.db.WithContext(c).Model(&model.Task{}).
		Where("status = ?", model.TaskCompleted).Count(&completedTasks).Error
	if err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}

	activeProjectsGauge.Set(float64(activeProjects))
	openTasksGauge.Set(float64(openTasks))
	completedTasksGauge.Set(float64(completedTasks))
	streamClientsGauge.Set(float64(mgr.hub.ClientCount()))

	promHTTPHandler.ServeHTTP(c.Writer, c.Request)
}
