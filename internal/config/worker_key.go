package config

type WorkerKeyStruct struct {
	PersistAnalyticsQueue   string
	PersistAdaptationsQueue string
}

var WorkerKey = &WorkerKeyStruct{
	PersistAnalyticsQueue:   "persist_analytics_queue",
	PersistAdaptationsQueue: "persist_adaptations_queue",
}
