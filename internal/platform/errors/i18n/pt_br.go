package i18n

var ptBRMessages = map[Code]string{
	CodeUnknown:                    "Algo deu errado. Tente novamente.",
	CodeValidationRequired:         "{{.Field}} é obrigatório.",
	CodeValidationInvalidEnum:      "{{.Field}} deve ser um de: {{.Allowed}}.",
	CodeValidationTooLong:          "{{.Field}} deve ter no máximo {{.Max}} caracteres.",
	CodeValidationOutOfRange:       "{{.Field}} está fora do intervalo.",
	CodeValidationInvalidURL:       "{{.Field}} deve ser um link http ou https.",
	CodeUnauthenticated:            "Entre para continuar.",
	CodeForbidden:                  "Você não tem permissão para isso nesta sala.",
	CodeMembershipRequired:         "Somente membros aprovados podem fazer isso.",
	CodeNotFound:                   "Não foi possível encontrar {{.Resource}}.",
	CodeJoinRequestAlreadyResolved: "Este pedido já foi {{.Status}}.",
	CodeRoomInactive:               "Esta sala está fechada.",
	CodeLastTeacherRequired:        "A sala precisa manter pelo menos um professor.",
	CodeConflict:                   "Essa alteração conflita com o estado atual da sala.",
	CodeDependencyFailure:          "O serviço de salas está indisponível no momento.",
}
