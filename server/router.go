package server

import (
	"github.com/gin-gonic/gin"
)

// RouterConfig carries the handlers wired into the HTTP router.
type RouterConfig struct {
	OntologyHandler *OntologyHandler
	BatchHandler    *BatchHandler
	RAGHandler      *RAGHandler
}

// NewRouter builds the gin engine with all routes registered.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	router.GET("/health", HealthCheck)

	ont := router.Group("/ontology")
	{
		ont.GET("/structure", cfg.OntologyHandler.GetStructure)
		ont.POST("/entity_type", cfg.OntologyHandler.AddEntityType)
		ont.POST("/relationship_type", cfg.OntologyHandler.AddRelationshipType)
		ont.POST("/snapshot", cfg.OntologyHandler.CreateSnapshot)
		ont.GET("/versions", cfg.OntologyHandler.ListVersions)
	}

	b := router.Group("/batch")
	{
		b.POST("/process", cfg.BatchHandler.Process)
		b.GET("/status/:job_id", cfg.BatchHandler.Status)
		b.DELETE("/cancel/:job_id", cfg.BatchHandler.Cancel)
		b.GET("/report/:job_id", cfg.BatchHandler.Report)
	}

	rag := router.Group("/rag")
	{
		rag.POST("/build_graph", cfg.RAGHandler.BuildGraph)
	}

	return router
}
